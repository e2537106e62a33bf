package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/response"
)

func (h *Handler) GetNotifications(c *gin.Context) {
	list, err := h.svc.Notifications.GetByUserID(c.Request.Context(), middleware.GetUserID(c))
	respond(c, list, err, "failed to list notifications")
}

func (h *Handler) GetUnreadCount(c *gin.Context) {
	n, err := h.svc.Notifications.GetUnreadCount(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "failed to count notifications")
		return
	}
	response.Success(c, domain.UnreadCount{Count: n})
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	list, err := h.svc.Notifications.MarkAllAsRead(c.Request.Context(), middleware.GetUserID(c))
	respond(c, list, err, "failed to mark notifications read")
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "notification_id")
	if !ok {
		return
	}

	n, err := h.svc.Notifications.MarkAsRead(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, n, err, "failed to mark notification read")
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	id, ok := pathID(c, "notification_id")
	if !ok {
		return
	}

	n, err := h.svc.Notifications.Delete(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, n, err, "failed to delete notification")
}
