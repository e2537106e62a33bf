package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pulse-social/pulse/internal/audit"
	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/pkg/log"
)

type commentServiceImpl struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	visible  *postVisibility
	notifier *Notifier
}

// NewCommentService creates a comment service. notifier may be nil.
func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	notifier *Notifier,
) CommentService {
	return &commentServiceImpl{
		comments: comments,
		posts:    posts,
		users:    users,
		visible:  &postVisibility{users: users, follows: follows},
		notifier: notifier,
	}
}

func (s *commentServiceImpl) GetByPostID(ctx context.Context, viewerID, postID int64) ([]*domain.Comment, error) {
	if _, err := s.visible.visiblePost(ctx, s.posts, viewerID, postID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldPostID, postID).Msg("failed to list comments")
		return nil, err
	}
	if err := attachAuthors(ctx, s.users, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *commentServiceImpl) GetByID(ctx context.Context, viewerID, id int64) (*domain.Comment, error) {
	comment, err := s.visibleComment(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	if err := attachAuthors(ctx, s.users, []*domain.Comment{comment}); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *commentServiceImpl) GetReplies(ctx context.Context, viewerID, parentID int64) ([]*domain.Comment, error) {
	if _, err := s.visibleComment(ctx, viewerID, parentID); err != nil {
		return nil, err
	}

	replies, err := s.comments.ListReplies(ctx, parentID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldCommentID, parentID).Msg("failed to list replies")
		return nil, err
	}
	if err := attachAuthors(ctx, s.users, replies); err != nil {
		return nil, err
	}
	return replies, nil
}

// GetThread groups a post's comments into top-level comments, each with its
// direct replies. Replies nested deeper are not part of the thread view.
func (s *commentServiceImpl) GetThread(ctx context.Context, viewerID, postID int64) ([]*domain.CommentThread, error) {
	comments, err := s.GetByPostID(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}

	threads := make([]*domain.CommentThread, 0)
	byParent := make(map[int64]*domain.CommentThread)
	for _, c := range comments {
		if c.ParentID == nil {
			t := &domain.CommentThread{Comment: c, Replies: []*domain.Comment{}}
			threads = append(threads, t)
			byParent[c.ID] = t
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		if t, ok := byParent[*c.ParentID]; ok {
			t.Replies = append(t.Replies, c)
		}
	}
	return threads, nil
}

func (s *commentServiceImpl) Create(ctx context.Context, viewerID, postID int64, req *domain.CreateCommentRequest) (*domain.Comment, error) {
	l := log.Ctx(ctx)

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, invalid("comment content is required")
	}

	post, err := s.visible.visiblePost(ctx, s.posts, viewerID, postID)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrCommentNotFound) {
				return nil, invalid("parent comment does not exist")
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, invalid("parent comment belongs to another post")
		}
	}

	comment := &domain.Comment{
		PostID:   postID,
		UserID:   viewerID,
		ParentID: req.ParentID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		l.Error().Err(err).Int64(log.FieldPostID, postID).Msg("failed to create comment")
		return nil, err
	}
	if err := attachAuthors(ctx, s.users, []*domain.Comment{comment}); err != nil {
		l.Warn().Err(err).Int64(log.FieldCommentID, comment.ID).Msg("failed to load comment author")
	}

	s.notifier.PostCommented(ctx, viewerID, post, comment)
	return comment, nil
}

func (s *commentServiceImpl) Update(ctx context.Context, viewerID, id int64, req *domain.UpdateCommentRequest) (*domain.Comment, error) {
	l := log.Ctx(ctx)

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, invalid("comment content is required")
	}

	if _, err := s.owned(ctx, viewerID, id); err != nil {
		return nil, err
	}

	comment, err := s.comments.UpdateContent(ctx, id, content)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return nil, ErrCommentNotFound
		}
		l.Error().Err(err).Int64(log.FieldCommentID, id).Msg("failed to update comment")
		return nil, err
	}
	if err := attachAuthors(ctx, s.users, []*domain.Comment{comment}); err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete removes the comment and its direct replies. Only the author may
// delete a comment.
func (s *commentServiceImpl) Delete(ctx context.Context, viewerID, id int64) error {
	l := log.Ctx(ctx)

	if _, err := s.owned(ctx, viewerID, id); err != nil {
		return err
	}

	removed, err := s.comments.DeleteWithReplies(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return ErrCommentNotFound
		}
		l.Error().Err(err).Int64(log.FieldCommentID, id).Msg("failed to delete comment")
		return err
	}

	l.Debug().Int64(log.FieldCommentID, id).Int64("removed", removed).Msg("comment deleted")
	audit.LogWithTarget(ctx, audit.ActionCommentDelete, viewerID, id, "comment deleted")
	return nil
}

func (s *commentServiceImpl) owned(ctx context.Context, viewerID, id int64) (*domain.Comment, error) {
	comment, err := s.visibleComment(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != viewerID {
		return nil, ErrNotCommentOwner
	}
	return comment, nil
}

// visibleComment loads a comment on a post the viewer can see.
func (s *commentServiceImpl) visibleComment(ctx context.Context, viewerID, id int64) (*domain.Comment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			return nil, ErrCommentNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldCommentID, id).Msg("failed to get comment")
		return nil, err
	}

	if _, err := s.visible.visiblePost(ctx, s.posts, viewerID, comment.PostID); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return comment, nil
}
