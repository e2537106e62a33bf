package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pulse-social/pulse/internal/domain"
)

// GormPostRepository implements PostRepository using GORM.
type GormPostRepository struct {
	db *gorm.DB
}

var _ PostRepository = (*GormPostRepository)(nil)

func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	model := domain.PostToModel(post)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		return tx.Model(&domain.UserModel{}).
			Where("id = ?", model.UserID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
	})
	if err != nil {
		return err
	}

	post.ID = model.ID
	post.CreatedAt = model.CreatedAt
	post.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *GormPostRepository) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	var model domain.PostModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormPostRepository) List(ctx context.Context) ([]*domain.Post, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *GormPostRepository) ListByUsers(ctx context.Context, userIDs []int64) ([]*domain.Post, error) {
	if len(userIDs) == 0 {
		return []*domain.Post{}, nil
	}
	return r.find(r.db.WithContext(ctx).Where("user_id IN ?", uniqueIDs(userIDs)))
}

func (r *GormPostRepository) find(q *gorm.DB) ([]*domain.Post, error) {
	var models []domain.PostModel
	if err := q.Order("created_at DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Post, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

func (r *GormPostRepository) Update(ctx context.Context, post *domain.Post) error {
	result := r.db.WithContext(ctx).Model(&domain.PostModel{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"content":   post.Content,
			"image_url": post.ImageURL,
			"privacy":   post.Privacy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}

	updated, err := r.GetByID(ctx, post.ID)
	if err != nil {
		return err
	}
	post.UpdatedAt = updated.UpdatedAt
	return nil
}

func (r *GormPostRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.PostModel
		if err := tx.Select("id", "user_id").First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		if err := tx.Where("post_id = ?", id).Delete(&domain.PostLikeModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&domain.CommentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&domain.NotificationModel{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.PostModel{}, "id = ?", id).Error; err != nil {
			return err
		}

		return tx.Model(&domain.UserModel{}).
			Where("id = ?", model.UserID).
			UpdateColumn("post_count", decrementBy("post_count", 1)).Error
	})
}

func (r *GormPostRepository) LikedPostIDs(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(postIDs) == 0 || userID == 0 {
		return out, nil
	}

	var liked []int64
	err := r.db.WithContext(ctx).Model(&domain.PostLikeModel{}).
		Where("user_id = ? AND post_id IN ?", userID, uniqueIDs(postIDs)).
		Pluck("post_id", &liked).Error
	if err != nil {
		return nil, err
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

func (r *GormPostRepository) ToggleLike(ctx context.Context, postID, userID int64) (bool, int64, error) {
	var (
		liked     bool
		likeCount int64
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.PostModel
		if err := tx.Select("id").First(&model, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		removed := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&domain.PostLikeModel{})
		if removed.Error != nil {
			return removed.Error
		}

		counter := gorm.Expr("like_count + 1")
		if removed.RowsAffected > 0 {
			counter = decrementBy("like_count", 1)
		} else {
			liked = true
			if err := tx.Create(&domain.PostLikeModel{PostID: postID, UserID: userID}).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&domain.PostModel{}).Where("id = ?", postID).
			UpdateColumn("like_count", counter).Error; err != nil {
			return err
		}

		return tx.Model(&domain.PostModel{}).Where("id = ?", postID).
			Select("like_count").Scan(&likeCount).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, likeCount, nil
}
