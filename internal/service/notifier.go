package service

import (
	"context"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/pkg/log"
)

// Notifier fans activity out to the affected user. It never notifies a
// user about their own actions, and failures are logged, not returned.
type Notifier struct {
	notifications NotificationService
	users         repository.UserRepository
}

func NewNotifier(notifications NotificationService, users repository.UserRepository) *Notifier {
	return &Notifier{
		notifications: notifications,
		users:         users,
	}
}

// PostLiked notifies the post owner.
func (n *Notifier) PostLiked(ctx context.Context, fromUserID int64, post *domain.Post) {
	postID := post.ID
	n.send(ctx, &domain.CreateNotificationRequest{
		UserID:     post.UserID,
		FromUserID: fromUserID,
		Type:       domain.NotificationLike,
		PostID:     &postID,
	}, "liked your post")
}

// PostCommented notifies the post owner.
func (n *Notifier) PostCommented(ctx context.Context, fromUserID int64, post *domain.Post, comment *domain.Comment) {
	postID, commentID := post.ID, comment.ID
	n.send(ctx, &domain.CreateNotificationRequest{
		UserID:     post.UserID,
		FromUserID: fromUserID,
		Type:       domain.NotificationComment,
		PostID:     &postID,
		CommentID:  &commentID,
	}, "commented on your post")
}

// Followed notifies the followee.
func (n *Notifier) Followed(ctx context.Context, followerID, followingID int64) {
	n.send(ctx, &domain.CreateNotificationRequest{
		UserID:     followingID,
		FromUserID: followerID,
		Type:       domain.NotificationFollow,
	}, "started following you")
}

func (n *Notifier) send(ctx context.Context, req *domain.CreateNotificationRequest, action string) {
	if n == nil || req.UserID == req.FromUserID {
		return
	}
	l := log.Ctx(ctx)

	from, err := n.users.GetByID(ctx, req.FromUserID)
	if err != nil {
		l.Warn().Err(err).Int64(log.FieldUserID, req.FromUserID).Msg("notification skipped: sender lookup failed")
		return
	}
	name := from.DisplayName
	if name == "" {
		name = from.Username
	}
	req.Message = name + " " + action

	if _, err := n.notifications.Create(ctx, req); err != nil {
		l.Warn().Err(err).
			Str("type", req.Type).
			Int64(log.FieldTargetUserID, req.UserID).
			Msg("failed to send notification")
	}
}
