package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pulse-social/pulse/internal/domain"
)

// decrementBy lowers column by n without going below zero.
func decrementBy(column string, n int64) clause.Expr {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s > ? THEN %[1]s - ? ELSE 0 END", column), n, n)
}

// GormCounterRepository implements CounterRepository using GORM aggregates.
type GormCounterRepository struct {
	db *gorm.DB
}

var _ CounterRepository = (*GormCounterRepository)(nil)

func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

type groupCount struct {
	ID    int64
	Total int64
}

func (r *GormCounterRepository) counts(ctx context.Context, model interface{}, column string) (map[int64]int64, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).Model(model).
		Select(column + " AS id, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[int64]int64, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Total
	}
	return out, nil
}

// ReconcileUserCounters rewrites follower, following and post counts that
// disagree with the follows and posts tables. It returns the number of users
// fixed.
func (r *GormCounterRepository) ReconcileUserCounters(ctx context.Context) (int64, error) {
	followers, err := r.counts(ctx, &domain.FollowModel{}, "following_id")
	if err != nil {
		return 0, err
	}
	following, err := r.counts(ctx, &domain.FollowModel{}, "follower_id")
	if err != nil {
		return 0, err
	}
	posts, err := r.counts(ctx, &domain.PostModel{}, "user_id")
	if err != nil {
		return 0, err
	}

	var users []domain.UserModel
	if err := r.db.WithContext(ctx).
		Select("id", "follower_count", "following_count", "post_count").
		Find(&users).Error; err != nil {
		return 0, err
	}

	var fixed int64
	for _, u := range users {
		if u.FollowerCount == followers[u.ID] && u.FollowingCount == following[u.ID] && u.PostCount == posts[u.ID] {
			continue
		}
		if err := r.db.WithContext(ctx).Model(&domain.UserModel{}).
			Where("id = ?", u.ID).
			UpdateColumns(map[string]interface{}{
				"follower_count":  followers[u.ID],
				"following_count": following[u.ID],
				"post_count":      posts[u.ID],
			}).Error; err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

// ReconcilePostCounters rewrites like and comment counts that disagree with
// the post_likes and comments tables. It returns the number of posts fixed.
func (r *GormCounterRepository) ReconcilePostCounters(ctx context.Context) (int64, error) {
	likes, err := r.counts(ctx, &domain.PostLikeModel{}, "post_id")
	if err != nil {
		return 0, err
	}
	comments, err := r.counts(ctx, &domain.CommentModel{}, "post_id")
	if err != nil {
		return 0, err
	}

	var posts []domain.PostModel
	if err := r.db.WithContext(ctx).
		Select("id", "like_count", "comment_count").
		Find(&posts).Error; err != nil {
		return 0, err
	}

	var fixed int64
	for _, p := range posts {
		if p.LikeCount == likes[p.ID] && p.CommentCount == comments[p.ID] {
			continue
		}
		if err := r.db.WithContext(ctx).Model(&domain.PostModel{}).
			Where("id = ?", p.ID).
			UpdateColumns(map[string]interface{}{
				"like_count":    likes[p.ID],
				"comment_count": comments[p.ID],
			}).Error; err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}
