package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/pkg/middleware"
)

func (h *Handler) HomePage(c *gin.Context) {
	page, err := h.svc.Pages.Home(c.Request.Context(), middleware.GetUserID(c))
	respond(c, page, err, "failed to load home page")
}

func (h *Handler) ProfilePage(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	page, err := h.svc.Pages.Profile(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, page, err, "failed to load profile page")
}

func (h *Handler) PostDetailPage(c *gin.Context) {
	id, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	page, err := h.svc.Pages.PostDetail(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, page, err, "failed to load post page")
}
