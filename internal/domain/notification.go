package domain

import (
	"time"
)

const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
)

// Notification is an activity item delivered to UserID.
type Notification struct {
	ID         int64        `json:"id"`
	UserID     int64        `json:"user_id"`
	FromUserID int64        `json:"from_user_id"`
	Type       string       `json:"type"`
	PostID     *int64       `json:"post_id"`
	CommentID  *int64       `json:"comment_id"`
	Message    string       `json:"message"`
	IsRead     bool         `json:"is_read"`
	FromUser   *UserSummary `json:"from_user,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// CreateNotificationRequest describes a notification to create.
type CreateNotificationRequest struct {
	UserID     int64
	FromUserID int64
	Type       string
	PostID     *int64
	CommentID  *int64
	Message    string
}

type UnreadCount struct {
	Count int64 `json:"count"`
}
