package domain

import (
	"time"
)

// User represents a user entity.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email,omitempty"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatar_url"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	PostCount      int64     `json:"post_count"`
	IsPrivate      bool      `json:"is_private"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Public returns a copy of u without fields only its owner may see.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Email = ""
	return &c
}

// Summary returns the compact form embedded in other read models.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// UserSummary is the author/partner shape attached to posts, comments,
// notifications and conversations.
type UserSummary struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,min=3,max=50"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents a refresh token request.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateUserRequest carries a partial profile update. Nil fields are left
// untouched.
type UpdateUserRequest struct {
	Username    *string `json:"username" binding:"omitempty,min=3,max=50"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,max=512"`
	IsPrivate   *bool   `json:"is_private"`
}

// Apply merges the present fields into u.
func (r *UpdateUserRequest) Apply(u *User) {
	if r.Username != nil {
		u.Username = *r.Username
	}
	if r.DisplayName != nil {
		u.DisplayName = *r.DisplayName
	}
	if r.Bio != nil {
		u.Bio = *r.Bio
	}
	if r.AvatarURL != nil {
		u.AvatarURL = *r.AvatarURL
	}
	if r.IsPrivate != nil {
		u.IsPrivate = *r.IsPrivate
	}
}

// ChangePasswordRequest represents a change password request.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// AuthResponse represents authentication response with tokens.
type AuthResponse struct {
	User             *User  `json:"user"`
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresAt        int64  `json:"expires_at"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}

// AvatarURLs holds the URLs of the processed avatar sizes.
type AvatarURLs struct {
	Sm string `json:"sm"` // 48px
	Md string `json:"md"` // 128px
	Lg string `json:"lg"` // 512px
}

// AvatarResponse is returned after an avatar upload.
type AvatarResponse struct {
	User    *User      `json:"user"`
	Avatars AvatarURLs `json:"avatars"`
}
