package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/response"
)

// WebSocket upgrades the authenticated request and streams the caller's
// realtime events.
func (h *Handler) WebSocket(c *gin.Context) {
	if h.hub == nil {
		response.ServiceUnavailable(c, "realtime events are not configured")
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.hub.Serve(c.Writer, c.Request, userID); err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("websocket upgrade failed")
	}
}
