package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/response"
)

// GetPostComments lists a post's comments flat, or grouped into threads with
// ?view=thread.
func (h *Handler) GetPostComments(c *gin.Context) {
	ctx := c.Request.Context()
	postID, ok := pathID(c, "post_id")
	if !ok {
		return
	}
	viewerID := middleware.GetUserID(c)

	if c.Query("view") == "thread" {
		threads, err := h.svc.Comments.GetThread(ctx, viewerID, postID)
		if err != nil {
			respondError(c, err, "failed to list comments")
			return
		}
		response.Success(c, threads)
		return
	}

	comments, err := h.svc.Comments.GetByPostID(ctx, viewerID, postID)
	respond(c, comments, err, "failed to list comments")
}

func (h *Handler) CreateComment(c *gin.Context) {
	ctx := c.Request.Context()

	postID, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	var req domain.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.svc.Comments.Create(ctx, middleware.GetUserID(c), postID, &req)
	if err != nil {
		respondError(c, err, "failed to create comment")
		return
	}
	response.Created(c, comment)
}

func (h *Handler) GetComment(c *gin.Context) {
	id, ok := pathID(c, "comment_id")
	if !ok {
		return
	}

	comment, err := h.svc.Comments.GetByID(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, comment, err, "failed to get comment")
}

func (h *Handler) GetReplies(c *gin.Context) {
	id, ok := pathID(c, "comment_id")
	if !ok {
		return
	}

	replies, err := h.svc.Comments.GetReplies(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, replies, err, "failed to list replies")
}

func (h *Handler) UpdateComment(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "comment_id")
	if !ok {
		return
	}

	var req domain.UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.svc.Comments.Update(ctx, middleware.GetUserID(c), id, &req)
	respond(c, comment, err, "failed to update comment")
}

func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "comment_id")
	if !ok {
		return
	}

	if err := h.svc.Comments.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err, "failed to delete comment")
		return
	}
	response.Success(c, gin.H{"message": "comment deleted"})
}
