package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/internal/realtime"
	"github.com/pulse-social/pulse/internal/service"
	"github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/response"
)

// Services bundles the application services the API exposes.
type Services struct {
	Users         service.UserService
	Posts         service.PostService
	Comments      service.CommentService
	Follows       service.FollowService
	Messages      service.MessageService
	Notifications service.NotificationService
	Pages         service.PageService
}

// Handler handles HTTP requests for the Pulse API.
type Handler struct {
	svc            Services
	hub            *realtime.Hub
	authMiddleware *middleware.AuthMiddleware
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler. hub may be nil, in which case the
// websocket route answers 503.
func NewHandler(svc Services, hub *realtime.Hub, authMiddleware *middleware.AuthMiddleware, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &Handler{
		svc:            svc,
		hub:            hub,
		authMiddleware: authMiddleware,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/refresh", h.RefreshToken)
			auth.POST("/logout", h.authMiddleware.RequireAuth(), h.Logout)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(h.authMiddleware.RequireAuth())

		users := protected.Group("/users")
		{
			users.GET("", h.ListUsers)
			users.GET("/search", h.SearchUsers)
			users.GET("/suggestions", h.GetSuggestions)
			users.GET("/me", h.GetMe)
			users.PUT("/me", h.UpdateMe)
			users.PUT("/me/password", h.ChangePassword)
			users.POST("/me/avatar", h.UploadAvatar)
			users.GET("/by-username/:username", h.GetUserByUsername)
			users.GET("/:user_id", h.GetUser)
			users.GET("/:user_id/posts", h.GetUserPosts)
			users.GET("/:user_id/followers", h.GetFollowers)
			users.GET("/:user_id/following", h.GetFollowing)
			users.GET("/:user_id/mutual", h.GetMutualFollows)
			users.GET("/:user_id/follow", h.GetFollowStatus)
			users.POST("/:user_id/follow", h.Follow)
			users.DELETE("/:user_id/follow", h.Unfollow)
		}

		protected.GET("/feed", h.GetFeed)
		posts := protected.Group("/posts")
		{
			posts.GET("", h.ListPosts)
			posts.POST("", h.CreatePost)
			posts.GET("/:post_id", h.GetPost)
			posts.PUT("/:post_id", h.UpdatePost)
			posts.DELETE("/:post_id", h.DeletePost)
			posts.POST("/:post_id/like", h.ToggleLike)
			posts.GET("/:post_id/comments", h.GetPostComments)
			posts.POST("/:post_id/comments", h.CreateComment)
		}

		comments := protected.Group("/comments")
		{
			comments.GET("/:comment_id", h.GetComment)
			comments.PUT("/:comment_id", h.UpdateComment)
			comments.DELETE("/:comment_id", h.DeleteComment)
			comments.GET("/:comment_id/replies", h.GetReplies)
		}

		conversations := protected.Group("/conversations")
		{
			conversations.GET("", h.GetConversations)
			conversations.GET("/:user_id/messages", h.GetMessages)
			conversations.POST("/:user_id/messages", h.SendMessage)
			conversations.POST("/:user_id/read", h.MarkConversationRead)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", h.GetNotifications)
			notifications.GET("/unread-count", h.GetUnreadCount)
			notifications.POST("/read-all", h.MarkAllNotificationsRead)
			notifications.POST("/:notification_id/read", h.MarkNotificationRead)
			notifications.DELETE("/:notification_id", h.DeleteNotification)
		}

		pages := protected.Group("/pages")
		{
			pages.GET("/home", h.HomePage)
			pages.GET("/profile/:user_id", h.ProfilePage)
			pages.GET("/posts/:post_id", h.PostDetailPage)
		}

		protected.GET("/ws", h.WebSocket)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respond answers 200 with data, or maps err through respondError.
func respond(c *gin.Context, data interface{}, err error, failure string) {
	if err != nil {
		respondError(c, err, failure)
		return
	}
	response.Success(c, data)
}

// bindJSON decodes the request body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Str(log.FieldPath, c.FullPath()).Msg("malformed request body")
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// pathID parses a numeric path parameter, answering 400 when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// respondError maps service errors onto the response envelope. Anything
// unrecognized is logged and answered with a generic 500.
func respondError(c *gin.Context, err error, failure string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrSelfFollow):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, "invalid email or password")
	case errors.Is(err, service.ErrNotPostOwner),
		errors.Is(err, service.ErrNotCommentOwner):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrNotificationNotFound),
		errors.Is(err, service.ErrNotFollowing):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrUsernameExists),
		errors.Is(err, service.ErrAlreadyFollowing):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrAvatarsDisabled):
		response.ServiceUnavailable(c, err.Error())
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldPath, c.FullPath()).Msg(failure)
		response.InternalError(c, failure)
	}
}
