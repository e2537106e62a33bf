package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pulse-social/pulse/internal/domain"
)

type pageServiceImpl struct {
	users         UserService
	posts         PostService
	comments      CommentService
	follows       FollowService
	notifications NotificationService
}

// NewPageService composes the per-screen reads from the resource services.
func NewPageService(users UserService, posts PostService, comments CommentService, follows FollowService, notifications NotificationService) PageService {
	return &pageServiceImpl{
		users:         users,
		posts:         posts,
		comments:      comments,
		follows:       follows,
		notifications: notifications,
	}
}

func (s *pageServiceImpl) Home(ctx context.Context, viewerID int64) (*domain.HomePage, error) {
	page := &domain.HomePage{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		page.CurrentUser, err = s.users.GetCurrentUser(gctx, viewerID)
		return err
	})
	g.Go(func() (err error) {
		page.Feed, err = s.posts.GetFeed(gctx, viewerID)
		return err
	})
	g.Go(func() (err error) {
		page.Suggestions, err = s.follows.GetSuggestions(gctx, viewerID)
		return err
	})
	g.Go(func() (err error) {
		page.UnreadCount, err = s.notifications.GetUnreadCount(gctx, viewerID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *pageServiceImpl) Profile(ctx context.Context, viewerID, userID int64) (*domain.ProfilePage, error) {
	page := &domain.ProfilePage{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		page.User, err = s.users.GetByID(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		page.Posts, err = s.posts.GetByUserID(gctx, viewerID, userID)
		return err
	})
	g.Go(func() (err error) {
		if viewerID == userID {
			return nil
		}
		page.IsFollowing, err = s.follows.IsFollowing(gctx, viewerID, userID)
		return err
	})
	g.Go(func() (err error) {
		page.Followers, err = s.follows.GetFollowers(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		page.Following, err = s.follows.GetFollowing(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *pageServiceImpl) PostDetail(ctx context.Context, viewerID, postID int64) (*domain.PostDetailPage, error) {
	page := &domain.PostDetailPage{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		page.Post, err = s.posts.GetByID(gctx, viewerID, postID)
		return err
	})
	g.Go(func() (err error) {
		page.Comments, err = s.comments.GetThread(gctx, viewerID, postID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}
