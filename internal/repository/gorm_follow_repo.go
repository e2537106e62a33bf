package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pulse-social/pulse/internal/domain"
)

// GormFollowRepository stores follow edges. Both users' denormalized
// counters change in the same transaction as the edge.
type GormFollowRepository struct {
	db *gorm.DB
}

var _ FollowRepository = (*GormFollowRepository)(nil)

func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

func edge(followerID, followingID int64) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("follower_id = ? AND following_id = ?", followerID, followingID)
	}
}

// shiftCounts moves the follower's following_count and the followee's
// follower_count together, by +1 or -1.
func shiftCounts(tx *gorm.DB, followerID, followingID int64, up bool) error {
	expr := func(col string) interface{} {
		if up {
			return gorm.Expr(col + " + 1")
		}
		return decrementBy(col, 1)
	}
	if err := tx.Model(&domain.UserModel{}).Where("id = ?", followerID).
		UpdateColumn("following_count", expr("following_count")).Error; err != nil {
		return err
	}
	return tx.Model(&domain.UserModel{}).Where("id = ?", followingID).
		UpdateColumn("follower_count", expr("follower_count")).Error
}

func (r *GormFollowRepository) Follow(ctx context.Context, followerID, followingID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.FollowModel{}).Scopes(edge(followerID, followingID)).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyFollowing
		}

		err := tx.Create(&domain.FollowModel{FollowerID: followerID, FollowingID: followingID}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyFollowing
		}
		if err != nil {
			return err
		}
		return shiftCounts(tx, followerID, followingID, true)
	})
}

func (r *GormFollowRepository) Unfollow(ctx context.Context, followerID, followingID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Scopes(edge(followerID, followingID)).Delete(&domain.FollowModel{})
		switch {
		case res.Error != nil:
			return res.Error
		case res.RowsAffected == 0:
			return ErrFollowNotFound
		}
		return shiftCounts(tx, followerID, followingID, false)
	})
}

func (r *GormFollowRepository) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).Scopes(edge(followerID, followingID)).Count(&n).Error
	return n > 0, err
}

func (r *GormFollowRepository) ListFollowers(ctx context.Context, userID int64) ([]*domain.Follow, error) {
	return r.find(r.db.WithContext(ctx).Where("following_id = ?", userID))
}

func (r *GormFollowRepository) ListFollowing(ctx context.Context, userID int64) ([]*domain.Follow, error) {
	return r.find(r.db.WithContext(ctx).Where("follower_id = ?", userID))
}

func (r *GormFollowRepository) find(q *gorm.DB) ([]*domain.Follow, error) {
	var models []domain.FollowModel
	if err := q.Order("created_at DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Follow, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

func (r *GormFollowRepository) FollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	if err := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("follower_id = ?", userID).Pluck("following_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
