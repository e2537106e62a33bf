package domain

import (
	"time"
)

const (
	PrivacyPublic    = "public"
	PrivacyFollowers = "followers"
)

// ValidPrivacy reports whether p is a known post privacy value.
func ValidPrivacy(p string) bool {
	return p == PrivacyPublic || p == PrivacyFollowers
}

// Post represents a post as seen by one viewer.
type Post struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	Content      string       `json:"content"`
	ImageURL     *string      `json:"image_url"`
	LikeCount    int64        `json:"like_count"`
	CommentCount int64        `json:"comment_count"`
	Privacy      string       `json:"privacy"`
	IsLiked      bool         `json:"is_liked"`
	Author       *UserSummary `json:"author,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CreatePostRequest represents a create post request.
type CreatePostRequest struct {
	Content  string  `json:"content" binding:"max=5000"`
	ImageURL *string `json:"image_url" binding:"omitempty,max=512"`
	Privacy  string  `json:"privacy"`
}

// UpdatePostRequest carries a partial post update. An empty image_url clears
// the image.
type UpdatePostRequest struct {
	Content  *string `json:"content" binding:"omitempty,max=5000"`
	ImageURL *string `json:"image_url" binding:"omitempty,max=512"`
	Privacy  *string `json:"privacy"`
}
