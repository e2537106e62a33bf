package service

import (
	"context"
	"errors"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/repository"
)

// postVisibility decides which posts a viewer may see. A post is visible to
// its author, to everyone when it is public and its author's account is not
// private, and to the author's followers.
type postVisibility struct {
	users   repository.UserRepository
	follows repository.FollowRepository
}

func canSee(viewerID int64, post *domain.Post, author *domain.User, following map[int64]bool) bool {
	switch {
	case post.UserID == viewerID:
		return true
	case post.Privacy == domain.PrivacyPublic && author != nil && !author.IsPrivate:
		return true
	default:
		return following[post.UserID]
	}
}

func (v *postVisibility) followingSet(ctx context.Context, viewerID int64) (map[int64]bool, error) {
	ids, err := v.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// filter drops posts the viewer may not see and attaches authors to the
// rest. Posts whose author no longer exists are dropped.
func (v *postVisibility) filter(ctx context.Context, viewerID int64, posts []*domain.Post) ([]*domain.Post, error) {
	if len(posts) == 0 {
		return []*domain.Post{}, nil
	}

	authorIDs := make([]int64, len(posts))
	for i, p := range posts {
		authorIDs[i] = p.UserID
	}
	authors, err := v.users.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	following, err := v.followingSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Post, 0, len(posts))
	for _, p := range posts {
		author, ok := authors[p.UserID]
		if !ok || !canSee(viewerID, p, author, following) {
			continue
		}
		p.Author = author.Summary()
		out = append(out, p)
	}
	return out, nil
}

// check reports whether a single post is visible and attaches its author.
func (v *postVisibility) check(ctx context.Context, viewerID int64, post *domain.Post) (bool, error) {
	visible, err := v.filter(ctx, viewerID, []*domain.Post{post})
	if err != nil {
		return false, err
	}
	return len(visible) == 1, nil
}

// visiblePost loads a post and reports ErrPostNotFound when it is missing or
// hidden from the viewer.
func (v *postVisibility) visiblePost(ctx context.Context, posts repository.PostRepository, viewerID, id int64) (*domain.Post, error) {
	post, err := posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	ok, err := v.check(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// attachAuthors sets Author on every comment whose user exists.
func attachAuthors(ctx context.Context, users repository.UserRepository, comments []*domain.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	ids := make([]int64, len(comments))
	for i, c := range comments {
		ids[i] = c.UserID
	}
	authors, err := users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, c := range comments {
		c.Author = authors[c.UserID].Summary()
	}
	return nil
}
