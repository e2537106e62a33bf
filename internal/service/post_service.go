package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pulse-social/pulse/internal/audit"
	"github.com/pulse-social/pulse/internal/cache"
	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/pkg/log"
)

type postServiceImpl struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	visible  *postVisibility
	notifier *Notifier
	cache    cache.UserCache
}

// NewPostService creates a post service. notifier and userCache may be nil.
func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	notifier *Notifier,
	userCache cache.UserCache,
) PostService {
	return &postServiceImpl{
		posts:    posts,
		users:    users,
		visible:  &postVisibility{users: users, follows: follows},
		notifier: notifier,
		cache:    userCache,
	}
}

func (s *postServiceImpl) GetAll(ctx context.Context, viewerID int64) ([]*domain.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list posts")
		return nil, err
	}
	return s.present(ctx, viewerID, posts)
}

// GetFeed returns the viewer's posts and those of the users they follow.
func (s *postServiceImpl) GetFeed(ctx context.Context, viewerID int64) ([]*domain.Post, error) {
	l := log.Ctx(ctx)

	authors, err := s.visible.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, viewerID).Msg("failed to load followed users")
		return nil, err
	}

	posts, err := s.posts.ListByUsers(ctx, append(authors, viewerID))
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, viewerID).Msg("failed to load feed")
		return nil, err
	}
	return s.present(ctx, viewerID, posts)
}

func (s *postServiceImpl) GetByID(ctx context.Context, viewerID, id int64) (*domain.Post, error) {
	post, err := s.visible.visiblePost(ctx, s.posts, viewerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(ctx, viewerID, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postServiceImpl) GetByUserID(ctx context.Context, viewerID, userID int64) ([]*domain.Post, error) {
	l := log.Ctx(ctx)

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	posts, err := s.posts.ListByUsers(ctx, []int64{userID})
	if err != nil {
		l.Error().Err(err).Int64(log.FieldTargetUserID, userID).Msg("failed to list user posts")
		return nil, err
	}
	return s.present(ctx, viewerID, posts)
}

func (s *postServiceImpl) Create(ctx context.Context, viewerID int64, req *domain.CreatePostRequest) (*domain.Post, error) {
	l := log.Ctx(ctx)

	post := &domain.Post{
		UserID:   viewerID,
		Content:  strings.TrimSpace(req.Content),
		ImageURL: normalizeImageURL(req.ImageURL),
		Privacy:  req.Privacy,
	}
	if post.Privacy == "" {
		post.Privacy = domain.PrivacyPublic
	}
	if err := validatePost(post); err != nil {
		return nil, err
	}

	author, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.posts.Create(ctx, post); err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, viewerID).Msg("failed to create post")
		return nil, err
	}

	invalidateUsers(ctx, s.cache, viewerID)
	audit.LogWithTarget(ctx, audit.ActionPostCreate, viewerID, post.ID, "post created")

	post.Author = author.Summary()
	return post, nil
}

func (s *postServiceImpl) Update(ctx context.Context, viewerID, id int64, req *domain.UpdatePostRequest) (*domain.Post, error) {
	l := log.Ctx(ctx)

	post, err := s.owned(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}

	if req.Content != nil {
		post.Content = strings.TrimSpace(*req.Content)
	}
	if req.ImageURL != nil {
		post.ImageURL = normalizeImageURL(req.ImageURL)
	}
	if req.Privacy != nil {
		post.Privacy = *req.Privacy
	}
	if err := validatePost(post); err != nil {
		return nil, err
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		l.Error().Err(err).Int64(log.FieldPostID, id).Msg("failed to update post")
		return nil, err
	}

	audit.LogWithTarget(ctx, audit.ActionPostUpdate, viewerID, id, "post updated")
	if err := s.markLiked(ctx, viewerID, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postServiceImpl) Delete(ctx context.Context, viewerID, id int64) error {
	l := log.Ctx(ctx)

	if _, err := s.owned(ctx, viewerID, id); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return ErrPostNotFound
		}
		l.Error().Err(err).Int64(log.FieldPostID, id).Msg("failed to delete post")
		return err
	}

	invalidateUsers(ctx, s.cache, viewerID)
	audit.LogWithTarget(ctx, audit.ActionPostDelete, viewerID, id, "post deleted")
	return nil
}

// ToggleLike flips the viewer's like. Only a new like notifies the owner.
func (s *postServiceImpl) ToggleLike(ctx context.Context, viewerID, id int64) (*domain.Post, error) {
	l := log.Ctx(ctx)

	post, err := s.visible.visiblePost(ctx, s.posts, viewerID, id)
	if err != nil {
		return nil, err
	}

	liked, count, err := s.posts.ToggleLike(ctx, id, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		l.Error().Err(err).Int64(log.FieldPostID, id).Msg("failed to toggle like")
		return nil, err
	}
	post.IsLiked = liked
	post.LikeCount = count

	if liked {
		s.notifier.PostLiked(ctx, viewerID, post)
	}
	return post, nil
}

// owned loads a post the viewer authored. Posts hidden from the viewer are
// reported as missing rather than forbidden.
func (s *postServiceImpl) owned(ctx context.Context, viewerID, id int64) (*domain.Post, error) {
	post, err := s.visible.visiblePost(ctx, s.posts, viewerID, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != viewerID {
		return nil, ErrNotPostOwner
	}
	return post, nil
}

func (s *postServiceImpl) present(ctx context.Context, viewerID int64, posts []*domain.Post) ([]*domain.Post, error) {
	visible, err := s.visible.filter(ctx, viewerID, posts)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to filter posts")
		return nil, err
	}
	if err := s.markLiked(ctx, viewerID, visible...); err != nil {
		return nil, err
	}
	return visible, nil
}

func (s *postServiceImpl) markLiked(ctx context.Context, viewerID int64, posts ...*domain.Post) error {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	liked, err := s.posts.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to load likes")
		return err
	}
	for _, p := range posts {
		p.IsLiked = liked[p.ID]
	}
	return nil
}

func validatePost(p *domain.Post) error {
	if p.Content == "" && p.ImageURL == nil {
		return invalid("post needs content or an image")
	}
	if !domain.ValidPrivacy(p.Privacy) {
		return invalid("privacy must be public or followers")
	}
	return nil
}

func normalizeImageURL(u *string) *string {
	if u == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*u)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
