package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pulse-social/pulse/internal/domain"
)

// GormCommentRepository implements CommentRepository using GORM.
type GormCommentRepository struct {
	db *gorm.DB
}

var _ CommentRepository = (*GormCommentRepository)(nil)

func NewGormCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	model := &domain.CommentModel{
		PostID:   comment.PostID,
		UserID:   comment.UserID,
		ParentID: comment.ParentID,
		Content:  comment.Content,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return tx.Model(&domain.PostModel{}).
			Where("id = ?", model.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return err
	}

	comment.ID = model.ID
	comment.CreatedAt = model.CreatedAt
	comment.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *GormCommentRepository) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	var model domain.CommentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormCommentRepository) ListByPost(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	return r.find(r.db.WithContext(ctx).Where("post_id = ?", postID))
}

func (r *GormCommentRepository) ListReplies(ctx context.Context, parentID int64) ([]*domain.Comment, error) {
	return r.find(r.db.WithContext(ctx).Where("parent_id = ?", parentID))
}

func (r *GormCommentRepository) find(q *gorm.DB) ([]*domain.Comment, error) {
	var models []domain.CommentModel
	if err := q.Order("created_at").Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Comment, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

func (r *GormCommentRepository) UpdateContent(ctx context.Context, id int64, content string) (*domain.Comment, error) {
	result := r.db.WithContext(ctx).Model(&domain.CommentModel{}).
		Where("id = ?", id).
		Update("content", content)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrCommentNotFound
	}
	return r.GetByID(ctx, id)
}

// DeleteWithReplies removes the comment and the replies whose parent it is.
// Replies to those replies are left in place.
func (r *GormCommentRepository) DeleteWithReplies(ctx context.Context, id int64) (int64, error) {
	var removed int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.CommentModel
		if err := tx.Select("id", "post_id").First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}

		result := tx.Where("id = ? OR parent_id = ?", id, id).Delete(&domain.CommentModel{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected

		return tx.Model(&domain.PostModel{}).
			Where("id = ?", model.PostID).
			UpdateColumn("comment_count", decrementBy("comment_count", removed)).Error
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
