package service

import (
	"context"
	"io"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/pkg/jwt"
)

// TokenManager issues and revokes JWT pairs.
type TokenManager interface {
	GenerateTokenPair(userID int64, username string) (*jwt.TokenPair, error)
	RefreshTokens(refreshToken string) (*jwt.Claims, *jwt.TokenPair, error)
	RevokeUserTokens(userID int64)
}

// AvatarProcessor stores the resized variants of an uploaded image.
type AvatarProcessor interface {
	Process(ctx context.Context, userID int64, r io.Reader) (*domain.AvatarURLs, error)
}

// UserService defines the interface for accounts and profiles.
type UserService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	RefreshToken(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error)
	Logout(ctx context.Context, userID int64) error
	GetAll(ctx context.Context) ([]*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// GetCurrentUser returns the caller's own profile, email included.
	GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error)
	Update(ctx context.Context, userID int64, req *domain.UpdateUserRequest) (*domain.User, error)
	ChangePassword(ctx context.Context, userID int64, req *domain.ChangePasswordRequest) error
	UploadAvatar(ctx context.Context, userID int64, r io.Reader) (*domain.AvatarResponse, error)
	// Search matches username or display name. An empty query matches nothing.
	Search(ctx context.Context, query string) ([]*domain.User, error)
}

// PostService defines the interface for posts as seen by a viewer.
type PostService interface {
	GetAll(ctx context.Context, viewerID int64) ([]*domain.Post, error)
	GetFeed(ctx context.Context, viewerID int64) ([]*domain.Post, error)
	GetByID(ctx context.Context, viewerID, id int64) (*domain.Post, error)
	GetByUserID(ctx context.Context, viewerID, userID int64) ([]*domain.Post, error)
	Create(ctx context.Context, viewerID int64, req *domain.CreatePostRequest) (*domain.Post, error)
	Update(ctx context.Context, viewerID, id int64, req *domain.UpdatePostRequest) (*domain.Post, error)
	Delete(ctx context.Context, viewerID, id int64) error
	ToggleLike(ctx context.Context, viewerID, id int64) (*domain.Post, error)
}

// CommentService defines the interface for comments and replies.
type CommentService interface {
	GetByPostID(ctx context.Context, viewerID, postID int64) ([]*domain.Comment, error)
	GetByID(ctx context.Context, viewerID, id int64) (*domain.Comment, error)
	GetReplies(ctx context.Context, viewerID, parentID int64) ([]*domain.Comment, error)
	GetThread(ctx context.Context, viewerID, postID int64) ([]*domain.CommentThread, error)
	Create(ctx context.Context, viewerID, postID int64, req *domain.CreateCommentRequest) (*domain.Comment, error)
	Update(ctx context.Context, viewerID, id int64, req *domain.UpdateCommentRequest) (*domain.Comment, error)
	Delete(ctx context.Context, viewerID, id int64) error
}

// FollowService defines the interface for the follow graph.
type FollowService interface {
	GetFollowers(ctx context.Context, userID int64) ([]*domain.FollowedUser, error)
	GetFollowing(ctx context.Context, userID int64) ([]*domain.FollowedUser, error)
	IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error)
	Follow(ctx context.Context, followerID, followingID int64) error
	Unfollow(ctx context.Context, followerID, followingID int64) error
	GetMutualFollows(ctx context.Context, userID, otherID int64) ([]*domain.User, error)
	GetSuggestions(ctx context.Context, userID int64) ([]*domain.User, error)
}

// MessageService defines the interface for direct messages.
type MessageService interface {
	GetConversations(ctx context.Context, userID int64) ([]*domain.Conversation, error)
	GetMessages(ctx context.Context, userID, partnerID int64) ([]*domain.Message, error)
	Send(ctx context.Context, senderID, receiverID int64, content string) (*domain.Message, error)
	MarkAsRead(ctx context.Context, userID, partnerID int64) (int64, error)
	SearchConversations(ctx context.Context, userID int64, query string) ([]*domain.Conversation, error)
}

// NotificationService defines the interface for a user's notifications.
type NotificationService interface {
	GetByUserID(ctx context.Context, userID int64) ([]*domain.Notification, error)
	GetUnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, userID, id int64) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context, userID int64) ([]*domain.Notification, error)
	Create(ctx context.Context, req *domain.CreateNotificationRequest) (*domain.Notification, error)
	Delete(ctx context.Context, userID, id int64) (*domain.Notification, error)
}

// PageService composes the per-screen reads in parallel.
type PageService interface {
	Home(ctx context.Context, viewerID int64) (*domain.HomePage, error)
	Profile(ctx context.Context, viewerID, userID int64) (*domain.ProfilePage, error)
	PostDetail(ctx context.Context, viewerID, postID int64) (*domain.PostDetailPage, error)
}
