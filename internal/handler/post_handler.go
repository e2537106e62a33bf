package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/response"
)

func (h *Handler) ListPosts(c *gin.Context) {
	posts, err := h.svc.Posts.GetAll(c.Request.Context(), middleware.GetUserID(c))
	respond(c, posts, err, "failed to list posts")
}

func (h *Handler) GetFeed(c *gin.Context) {
	posts, err := h.svc.Posts.GetFeed(c.Request.Context(), middleware.GetUserID(c))
	respond(c, posts, err, "failed to load feed")
}

func (h *Handler) GetUserPosts(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	posts, err := h.svc.Posts.GetByUserID(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, posts, err, "failed to list posts")
}

func (h *Handler) GetPost(c *gin.Context) {
	id, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	post, err := h.svc.Posts.GetByID(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, post, err, "failed to get post")
}

func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.CreatePostRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := h.svc.Posts.Create(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		respondError(c, err, "failed to create post")
		return
	}
	response.Created(c, post)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	var req domain.UpdatePostRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := h.svc.Posts.Update(ctx, middleware.GetUserID(c), id, &req)
	respond(c, post, err, "failed to update post")
}

func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	if err := h.svc.Posts.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err, "failed to delete post")
		return
	}
	response.Success(c, gin.H{"message": "post deleted"})
}

func (h *Handler) ToggleLike(c *gin.Context) {
	id, ok := pathID(c, "post_id")
	if !ok {
		return
	}

	post, err := h.svc.Posts.ToggleLike(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, post, err, "failed to toggle like")
}
