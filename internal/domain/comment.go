package domain

import (
	"time"
)

// Comment represents a comment or a single-level reply.
type Comment struct {
	ID        int64        `json:"id"`
	PostID    int64        `json:"post_id"`
	UserID    int64        `json:"user_id"`
	ParentID  *int64       `json:"parent_id"`
	Content   string       `json:"content"`
	Author    *UserSummary `json:"author,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CommentThread is a top-level comment with its direct replies.
type CommentThread struct {
	*Comment
	Replies []*Comment `json:"replies"`
}

type CreateCommentRequest struct {
	Content  string `json:"content" binding:"max=2000"`
	ParentID *int64 `json:"parent_id"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}
