package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/response"
)

const avatarFormField = "avatar"

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.Users.GetAll(c.Request.Context())
	respond(c, users, err, "failed to list users")
}

func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.svc.Users.Search(c.Request.Context(), c.Query("q"))
	respond(c, users, err, "failed to search users")
}

// GetMe returns current user info.
func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.svc.Users.GetCurrentUser(c.Request.Context(), middleware.GetUserID(c))
	respond(c, user, err, "failed to get user")
}

// UpdateMe updates current user.
func (h *Handler) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.svc.Users.Update(ctx, middleware.GetUserID(c), &req)
	respond(c, user, err, "failed to update user")
}

// ChangePassword changes the current user's password.
func (h *Handler) ChangePassword(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.svc.Users.ChangePassword(ctx, middleware.GetUserID(c), &req); err != nil {
		respondError(c, err, "failed to change password")
		return
	}
	response.Success(c, gin.H{"message": "password changed successfully"})
}

// UploadAvatar accepts a multipart image in the "avatar" field.
func (h *Handler) UploadAvatar(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	file, err := c.FormFile(avatarFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c, "avatar exceeds the upload limit")
			return
		}
		l.Warn().Err(err).Msg("invalid avatar upload")
		response.BadRequest(c, "avatar file is required")
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, err, "failed to read avatar")
		return
	}
	defer f.Close()

	result, err := h.svc.Users.UploadAvatar(ctx, middleware.GetUserID(c), f)
	respond(c, result, err, "failed to upload avatar")
}

func (h *Handler) GetUserByUsername(c *gin.Context) {
	user, err := h.svc.Users.GetByUsername(c.Request.Context(), c.Param("username"))
	respond(c, user, err, "failed to get user")
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	user, err := h.svc.Users.GetByID(c.Request.Context(), id)
	respond(c, user, err, "failed to get user")
}
