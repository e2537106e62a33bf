package domain

import (
	"time"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Username       string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	DisplayName    string    `gorm:"type:varchar(100)"`
	Bio            string    `gorm:"type:text"`
	AvatarURL      string    `gorm:"column:avatar_url;type:varchar(512)"`
	FollowerCount  int64     `gorm:"not null"`
	FollowingCount int64     `gorm:"not null"`
	PostCount      int64     `gorm:"not null"`
	IsPrivate      bool      `gorm:"not null"`
	PasswordHash   string    `gorm:"type:varchar(255);not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:             m.ID,
		Email:          m.Email,
		Username:       m.Username,
		DisplayName:    m.DisplayName,
		Bio:            m.Bio,
		AvatarURL:      m.AvatarURL,
		FollowerCount:  m.FollowerCount,
		FollowingCount: m.FollowingCount,
		PostCount:      m.PostCount,
		IsPrivate:      m.IsPrivate,
		PasswordHash:   m.PasswordHash,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		AvatarURL:      u.AvatarURL,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		PostCount:      u.PostCount,
		IsPrivate:      u.IsPrivate,
		PasswordHash:   u.PasswordHash,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// PostModel is the GORM model for the posts table.
type PostModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	UserID       int64     `gorm:"index;not null"`
	Content      string    `gorm:"type:text"`
	ImageURL     *string   `gorm:"column:image_url;type:varchar(512)"`
	LikeCount    int64     `gorm:"not null"`
	CommentCount int64     `gorm:"not null"`
	Privacy      string    `gorm:"type:varchar(16);not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (PostModel) TableName() string { return "posts" }

func (m *PostModel) ToDomain() *Post {
	return &Post{
		ID:           m.ID,
		UserID:       m.UserID,
		Content:      m.Content,
		ImageURL:     m.ImageURL,
		LikeCount:    m.LikeCount,
		CommentCount: m.CommentCount,
		Privacy:      m.Privacy,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func PostToModel(p *Post) *PostModel {
	return &PostModel{
		ID:           p.ID,
		UserID:       p.UserID,
		Content:      p.Content,
		ImageURL:     p.ImageURL,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		Privacy:      p.Privacy,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// PostLikeModel records that a user liked a post.
type PostLikeModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	PostID    int64     `gorm:"not null;uniqueIndex:idx_post_likes_post_user"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_post_likes_post_user;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (PostLikeModel) TableName() string { return "post_likes" }

// CommentModel is the GORM model for the comments table.
type CommentModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	PostID    int64     `gorm:"index;not null"`
	UserID    int64     `gorm:"not null"`
	ParentID  *int64    `gorm:"index"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CommentModel) TableName() string { return "comments" }

func (m *CommentModel) ToDomain() *Comment {
	return &Comment{
		ID:        m.ID,
		PostID:    m.PostID,
		UserID:    m.UserID,
		ParentID:  m.ParentID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FollowModel is the GORM model for the follows table.
type FollowModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	FollowerID  int64     `gorm:"not null;uniqueIndex:idx_follows_pair"`
	FollowingID int64     `gorm:"not null;uniqueIndex:idx_follows_pair;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (FollowModel) TableName() string { return "follows" }

func (m *FollowModel) ToDomain() *Follow {
	return &Follow{
		ID:          m.ID,
		FollowerID:  m.FollowerID,
		FollowingID: m.FollowingID,
		CreatedAt:   m.CreatedAt,
	}
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	SenderID   int64     `gorm:"index;not null"`
	ReceiverID int64     `gorm:"index;not null"`
	Content    string    `gorm:"type:text;not null"`
	IsRead     bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

func (MessageModel) TableName() string { return "messages" }

func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Read:       m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

// NotificationModel is the GORM model for the notifications table.
type NotificationModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	UserID     int64  `gorm:"index;not null"`
	FromUserID int64  `gorm:"not null"`
	Type       string `gorm:"type:varchar(16);not null"`
	PostID     *int64
	CommentID  *int64
	Message    string    `gorm:"type:varchar(255)"`
	IsRead     bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (NotificationModel) TableName() string { return "notifications" }

func (m *NotificationModel) ToDomain() *Notification {
	return &Notification{
		ID:         m.ID,
		UserID:     m.UserID,
		FromUserID: m.FromUserID,
		Type:       m.Type,
		PostID:     m.PostID,
		CommentID:  m.CommentID,
		Message:    m.Message,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

// Models lists every table for AutoMigrate, parents first.
func Models() []interface{} {
	return []interface{}{
		&UserModel{},
		&PostModel{},
		&PostLikeModel{},
		&CommentModel{},
		&FollowModel{},
		&MessageModel{},
		&NotificationModel{},
	}
}
