package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/pubsub"
)

type notificationServiceImpl struct {
	repo      repository.NotificationRepository
	users     repository.UserRepository
	publisher pubsub.Publisher
}

// NewNotificationService creates a notification service. publisher may be
// nil, in which case no realtime events are emitted.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, publisher pubsub.Publisher) NotificationService {
	return &notificationServiceImpl{
		repo:      repo,
		users:     users,
		publisher: publisher,
	}
}

func (s *notificationServiceImpl) GetByUserID(ctx context.Context, userID int64) ([]*domain.Notification, error) {
	l := log.Ctx(ctx)

	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to list notifications")
		return nil, err
	}
	if err := s.attachFromUsers(ctx, list...); err != nil {
		l.Error().Err(err).Msg("failed to load notification senders")
		return nil, err
	}
	return list, nil
}

func (s *notificationServiceImpl) GetUnreadCount(ctx context.Context, userID int64) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to count unread notifications")
		return 0, err
	}
	return count, nil
}

func (s *notificationServiceImpl) MarkAsRead(ctx context.Context, userID, id int64) (*domain.Notification, error) {
	n, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return nil, s.translate(ctx, err, userID, id)
	}
	if err := s.attachFromUsers(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *notificationServiceImpl) MarkAllAsRead(ctx context.Context, userID int64) ([]*domain.Notification, error) {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldUserID, userID).Msg("failed to mark notifications read")
		return nil, err
	}
	return s.GetByUserID(ctx, userID)
}

func (s *notificationServiceImpl) Create(ctx context.Context, req *domain.CreateNotificationRequest) (*domain.Notification, error) {
	l := log.Ctx(ctx)

	switch req.Type {
	case domain.NotificationLike, domain.NotificationComment, domain.NotificationFollow:
	default:
		return nil, invalid(fmt.Sprintf("unknown notification type %q", req.Type))
	}

	n := &domain.Notification{
		UserID:     req.UserID,
		FromUserID: req.FromUserID,
		Type:       req.Type,
		PostID:     req.PostID,
		CommentID:  req.CommentID,
		Message:    req.Message,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		l.Error().Err(err).Int64(log.FieldTargetUserID, req.UserID).Msg("failed to create notification")
		return nil, err
	}
	if err := s.attachFromUsers(ctx, n); err != nil {
		l.Warn().Err(err).Int64(log.FieldNotificationID, n.ID).Msg("failed to load notification sender")
	}

	s.publish(ctx, n)
	return n, nil
}

func (s *notificationServiceImpl) Delete(ctx context.Context, userID, id int64) (*domain.Notification, error) {
	n, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return nil, s.translate(ctx, err, userID, id)
	}
	if err := s.attachFromUsers(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *notificationServiceImpl) publish(ctx context.Context, n *domain.Notification) {
	if s.publisher == nil {
		return
	}

	l := log.Ctx(ctx)
	event, err := pubsub.NewEvent(pubsub.EventNotificationCreated, n.UserID, n)
	if err != nil {
		l.Warn().Err(err).Msg("failed to build notification event")
		return
	}
	if err := s.publisher.Publish(ctx, pubsub.UserChannel(n.UserID), event); err != nil {
		l.Warn().Err(err).Int64(log.FieldNotificationID, n.ID).Msg("failed to publish notification event")
	}
}

func (s *notificationServiceImpl) attachFromUsers(ctx context.Context, list ...*domain.Notification) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]int64, len(list))
	for i, n := range list {
		ids[i] = n.FromUserID
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, n := range list {
		n.FromUser = users[n.FromUserID].Summary()
	}
	return nil
}

func (s *notificationServiceImpl) translate(ctx context.Context, err error, userID, id int64) error {
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	l := log.Ctx(ctx)
	l.Error().Err(err).
		Int64(log.FieldUserID, userID).
		Int64(log.FieldNotificationID, id).
		Msg("notification update failed")
	return err
}
