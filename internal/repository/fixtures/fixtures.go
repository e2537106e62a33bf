// Package fixtures seeds a database with the demo dataset used by mock mode.
package fixtures

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/internal/repository"
	"github.com/pulse-social/pulse/pkg/database"
	"github.com/pulse-social/pulse/pkg/log"
)

//go:embed data/*.json
var data embed.FS

type userFixture struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatar_url"`
	IsPrivate   bool      `json:"is_private"`
	Password    string    `json:"password"`
	CreatedAt   time.Time `json:"created_at"`
}

type postFixture struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
	Privacy   string    `json:"privacy"`
	CreatedAt time.Time `json:"created_at"`
}

type likeFixture struct {
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type commentFixture struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	ParentID  *int64    `json:"parent_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type followFixture struct {
	FollowerID  int64     `json:"follower_id"`
	FollowingID int64     `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type messageFixture struct {
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

type notificationFixture struct {
	UserID     int64     `json:"user_id"`
	FromUserID int64     `json:"from_user_id"`
	Type       string    `json:"type"`
	PostID     *int64    `json:"post_id"`
	CommentID  *int64    `json:"comment_id"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

func load(name string, v interface{}) error {
	raw, err := data.ReadFile("data/" + name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("fixture %s: %w", name, err)
	}
	return nil
}

// Seed inserts the demo dataset into an empty, migrated database and then
// derives every denormalized counter from the inserted rows. Explicit ids
// are written, so Seed is meant for fresh databases only.
func Seed(ctx context.Context, db *gorm.DB) error {
	var (
		users         []userFixture
		posts         []postFixture
		likes         []likeFixture
		comments      []commentFixture
		follows       []followFixture
		messages      []messageFixture
		notifications []notificationFixture
	)
	for name, dst := range map[string]interface{}{
		"users.json":         &users,
		"posts.json":         &posts,
		"post_likes.json":    &likes,
		"comments.json":      &comments,
		"follows.json":       &follows,
		"messages.json":      &messages,
		"notifications.json": &notifications,
	} {
		if err := load(name, dst); err != nil {
			return err
		}
	}

	hashes := make(map[string]string)
	userModels := make([]domain.UserModel, 0, len(users))
	for _, u := range users {
		hash, ok := hashes[u.Password]
		if !ok {
			b, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			hash = string(b)
			hashes[u.Password] = hash
		}
		userModels = append(userModels, domain.UserModel{
			ID:           u.ID,
			Email:        u.Email,
			Username:     u.Username,
			DisplayName:  u.DisplayName,
			Bio:          u.Bio,
			AvatarURL:    u.AvatarURL,
			IsPrivate:    u.IsPrivate,
			PasswordHash: hash,
			CreatedAt:    u.CreatedAt,
			UpdatedAt:    u.CreatedAt,
		})
	}

	postModels := make([]domain.PostModel, 0, len(posts))
	for _, p := range posts {
		postModels = append(postModels, domain.PostModel{
			ID:        p.ID,
			UserID:    p.UserID,
			Content:   p.Content,
			ImageURL:  p.ImageURL,
			Privacy:   p.Privacy,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.CreatedAt,
		})
	}

	likeModels := make([]domain.PostLikeModel, 0, len(likes))
	for _, l := range likes {
		likeModels = append(likeModels, domain.PostLikeModel{PostID: l.PostID, UserID: l.UserID, CreatedAt: l.CreatedAt})
	}

	commentModels := make([]domain.CommentModel, 0, len(comments))
	for _, c := range comments {
		commentModels = append(commentModels, domain.CommentModel{
			ID:        c.ID,
			PostID:    c.PostID,
			UserID:    c.UserID,
			ParentID:  c.ParentID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.CreatedAt,
		})
	}

	followModels := make([]domain.FollowModel, 0, len(follows))
	for _, f := range follows {
		followModels = append(followModels, domain.FollowModel{FollowerID: f.FollowerID, FollowingID: f.FollowingID, CreatedAt: f.CreatedAt})
	}

	messageModels := make([]domain.MessageModel, 0, len(messages))
	for _, m := range messages {
		messageModels = append(messageModels, domain.MessageModel{
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Content:    m.Content,
			IsRead:     m.Read,
			CreatedAt:  m.CreatedAt,
		})
	}

	notificationModels := make([]domain.NotificationModel, 0, len(notifications))
	for _, n := range notifications {
		notificationModels = append(notificationModels, domain.NotificationModel{
			UserID:     n.UserID,
			FromUserID: n.FromUserID,
			Type:       n.Type,
			PostID:     n.PostID,
			CommentID:  n.CommentID,
			Message:    n.Message,
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt,
		})
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rows := range []interface{}{
			&userModels,
			&postModels,
			&likeModels,
			&commentModels,
			&followModels,
			&messageModels,
			&notificationModels,
		} {
			if err := tx.Create(rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed fixtures: %w", err)
	}

	counters := repository.NewGormCounterRepository(db)
	if _, err := counters.ReconcileUserCounters(ctx); err != nil {
		return err
	}
	if _, err := counters.ReconcilePostCounters(ctx); err != nil {
		return err
	}

	l := log.Ctx(ctx)
	l.Info().
		Int("users", len(userModels)).
		Int("posts", len(postModels)).
		Msg("fixtures seeded")
	return nil
}

// OpenMemory opens a fresh in-memory sqlite database under name, migrates it
// and seeds the demo dataset. Distinct names give isolated databases.
func OpenMemory(ctx context.Context, name string) (*gorm.DB, error) {
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: "silent",
	})
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		return nil, err
	}
	if err := Seed(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}
