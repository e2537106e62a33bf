package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/response"
)

// Register creates an account and signs it in.
func (h *Handler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.svc.Users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "registration failed")
		return
	}
	response.Created(c, session)
}

func (h *Handler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.svc.Users.Login(c.Request.Context(), &req)
	respond(c, session, err, "login failed")
}

// RefreshToken trades a refresh token for a new pair. Every failure is
// reported as 401 so token state is not disclosed.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req domain.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.svc.Users.RefreshToken(c.Request.Context(), &req)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Debug().Err(err).Msg("token refresh rejected")
		response.Unauthorized(c, "invalid or expired refresh token")
		return
	}
	response.Success(c, session)
}

// Logout revokes the caller's refresh tokens. Access tokens issued before
// the call stop working too.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Users.Logout(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		respondError(c, err, "logout failed")
		return
	}
	response.Success(c, gin.H{"message": "logged out"})
}
