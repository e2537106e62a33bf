package repository

import (
	"context"
	"errors"

	"github.com/pulse-social/pulse/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailExists          = errors.New("email already exists")
	ErrUsernameExists       = errors.New("username already exists")
	ErrPostNotFound         = errors.New("post not found")
	ErrCommentNotFound      = errors.New("comment not found")
	ErrAlreadyFollowing     = errors.New("already following")
	ErrFollowNotFound       = errors.New("follow relationship not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByIDs returns the users that exist, keyed by id. Missing ids are
	// simply absent from the map.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	// Search matches q case-insensitively against username and display name.
	Search(ctx context.Context, q string, limit int) ([]*domain.User, error)
	// Update persists the profile fields and password hash of user.
	Update(ctx context.Context, user *domain.User) error
	// ListSuggestions returns users that userID neither is nor follows,
	// ordered by follower_count desc then id.
	ListSuggestions(ctx context.Context, userID int64, limit int) ([]*domain.User, error)
}

// PostRepository defines the interface for posts and likes.
type PostRepository interface {
	// Create inserts the post and bumps the author's post_count.
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id int64) (*domain.Post, error)
	// List returns every post, newest first.
	List(ctx context.Context) ([]*domain.Post, error)
	ListByUsers(ctx context.Context, userIDs []int64) ([]*domain.Post, error)
	Update(ctx context.Context, post *domain.Post) error
	// Delete removes the post with its likes and comments and decrements the
	// author's post_count.
	Delete(ctx context.Context, id int64) error
	// LikedPostIDs reports which of postIDs userID has liked.
	LikedPostIDs(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	// ToggleLike flips userID's like on the post and returns the new state.
	ToggleLike(ctx context.Context, postID, userID int64) (liked bool, likeCount int64, err error)
}

// CommentRepository defines the interface for comments.
type CommentRepository interface {
	// Create inserts the comment and bumps the post's comment_count.
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id int64) (*domain.Comment, error)
	// ListByPost returns the post's comments, oldest first.
	ListByPost(ctx context.Context, postID int64) ([]*domain.Comment, error)
	ListReplies(ctx context.Context, parentID int64) ([]*domain.Comment, error)
	UpdateContent(ctx context.Context, id int64, content string) (*domain.Comment, error)
	// DeleteWithReplies removes the comment and its direct replies and returns
	// the number of rows removed.
	DeleteWithReplies(ctx context.Context, id int64) (int64, error)
}

// FollowRepository defines the interface for follow relationship persistence.
type FollowRepository interface {
	// Follow inserts the edge and bumps both users' counters in one
	// transaction.
	Follow(ctx context.Context, followerID, followingID int64) error
	// Unfollow removes the edge and decrements both counters.
	Unfollow(ctx context.Context, followerID, followingID int64) error
	IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error)
	// ListFollowers and ListFollowing return edges newest first.
	ListFollowers(ctx context.Context, userID int64) ([]*domain.Follow, error)
	ListFollowing(ctx context.Context, userID int64) ([]*domain.Follow, error)
	FollowingIDs(ctx context.Context, userID int64) ([]int64, error)
}

// MessageRepository defines the interface for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListForUser returns every message userID sent or received.
	ListForUser(ctx context.Context, userID int64) ([]*domain.Message, error)
	// ListBetween returns the messages of a pair in either direction, oldest
	// first.
	ListBetween(ctx context.Context, userID, partnerID int64) ([]*domain.Message, error)
	// MarkRead flips messages sent by partnerID to userID and returns how
	// many changed.
	MarkRead(ctx context.Context, userID, partnerID int64) (int64, error)
}

// NotificationRepository defines the interface for notifications. Lookups
// scoped by user report ErrNotificationNotFound for other users' rows.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID int64) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, id int64) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, userID, id int64) (*domain.Notification, error)
}

// CounterRepository recomputes denormalized counters from source tables.
type CounterRepository interface {
	ReconcileUserCounters(ctx context.Context) (int64, error)
	ReconcilePostCounters(ctx context.Context) (int64, error)
}
