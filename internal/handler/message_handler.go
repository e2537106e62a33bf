package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/response"
)

// GetConversations lists the caller's conversations, filtered by ?q= when
// present.
func (h *Handler) GetConversations(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var (
		convs []*domain.Conversation
		err   error
	)
	if q, ok := c.GetQuery("q"); ok {
		convs, err = h.svc.Messages.SearchConversations(ctx, userID, q)
	} else {
		convs, err = h.svc.Messages.GetConversations(ctx, userID)
	}
	if err != nil {
		respondError(c, err, "failed to list conversations")
		return
	}
	response.Success(c, convs)
}

func (h *Handler) GetMessages(c *gin.Context) {
	partnerID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	msgs, err := h.svc.Messages.GetMessages(c.Request.Context(), middleware.GetUserID(c), partnerID)
	respond(c, msgs, err, "failed to list messages")
}

func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	receiverID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	var req domain.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.svc.Messages.Send(ctx, middleware.GetUserID(c), receiverID, req.Content)
	if err != nil {
		respondError(c, err, "failed to send message")
		return
	}
	response.Created(c, msg)
}

func (h *Handler) MarkConversationRead(c *gin.Context) {
	partnerID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	n, err := h.svc.Messages.MarkAsRead(c.Request.Context(), middleware.GetUserID(c), partnerID)
	if err != nil {
		respondError(c, err, "failed to mark messages read")
		return
	}
	response.Success(c, domain.MarkReadResponse{Count: n})
}
