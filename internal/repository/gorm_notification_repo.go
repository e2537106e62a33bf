package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pulse-social/pulse/internal/domain"
)

// GormNotificationRepository implements NotificationRepository using GORM.
type GormNotificationRepository struct {
	db *gorm.DB
}

var _ NotificationRepository = (*GormNotificationRepository)(nil)

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	model := &domain.NotificationModel{
		UserID:     n.UserID,
		FromUserID: n.FromUserID,
		Type:       n.Type,
		PostID:     n.PostID,
		CommentID:  n.CommentID,
		Message:    n.Message,
		IsRead:     n.IsRead,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	n.ID = model.ID
	n.CreatedAt = model.CreatedAt
	return nil
}

func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Notification, error) {
	var models []domain.NotificationModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Notification, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

func (r *GormNotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *GormNotificationRepository) MarkRead(ctx context.Context, userID, id int64) (*domain.Notification, error) {
	var out *domain.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := ownedNotification(tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Model(model).UpdateColumn("is_read", true).Error; err != nil {
			return err
		}
		model.IsRead = true
		out = model.ToDomain()
		return nil
	})
	return out, err
}

func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		UpdateColumn("is_read", true).Error
}

func (r *GormNotificationRepository) Delete(ctx context.Context, userID, id int64) (*domain.Notification, error) {
	var out *domain.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := ownedNotification(tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&domain.NotificationModel{}, "id = ?", id).Error; err != nil {
			return err
		}
		out = model.ToDomain()
		return nil
	})
	return out, err
}

func ownedNotification(tx *gorm.DB, userID, id int64) (*domain.NotificationModel, error) {
	var model domain.NotificationModel
	if err := tx.First(&model, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &model, nil
}
