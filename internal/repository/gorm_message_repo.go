package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pulse-social/pulse/internal/domain"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

var _ MessageRepository = (*GormMessageRepository)(nil)

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	model := &domain.MessageModel{
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		IsRead:     msg.Read,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	msg.ID = model.ID
	msg.CreatedAt = model.CreatedAt
	return nil
}

func (r *GormMessageRepository) ListForUser(ctx context.Context, userID int64) ([]*domain.Message, error) {
	return r.find(r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID))
}

func (r *GormMessageRepository) ListBetween(ctx context.Context, userID, partnerID int64) ([]*domain.Message, error) {
	return r.find(r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, partnerID, partnerID, userID))
}

func (r *GormMessageRepository) find(q *gorm.DB) ([]*domain.Message, error) {
	var models []domain.MessageModel
	if err := q.Order("created_at").Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Message, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

func (r *GormMessageRepository) MarkRead(ctx context.Context, userID, partnerID int64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", partnerID, userID, false).
		UpdateColumn("is_read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
