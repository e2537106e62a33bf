package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/pulse-social/pulse/internal/domain"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/response"
)

func (h *Handler) GetFollowers(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	followers, err := h.svc.Follows.GetFollowers(c.Request.Context(), id)
	respond(c, followers, err, "failed to list followers")
}

func (h *Handler) GetFollowing(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	following, err := h.svc.Follows.GetFollowing(c.Request.Context(), id)
	respond(c, following, err, "failed to list following")
}

func (h *Handler) GetMutualFollows(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	users, err := h.svc.Follows.GetMutualFollows(c.Request.Context(), middleware.GetUserID(c), id)
	respond(c, users, err, "failed to list mutual follows")
}

func (h *Handler) GetSuggestions(c *gin.Context) {
	users, err := h.svc.Follows.GetSuggestions(c.Request.Context(), middleware.GetUserID(c))
	respond(c, users, err, "failed to load suggestions")
}

func (h *Handler) GetFollowStatus(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	following, err := h.svc.Follows.IsFollowing(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err, "failed to check follow status")
		return
	}
	response.Success(c, domain.FollowStatus{IsFollowing: following})
}

func (h *Handler) Follow(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.svc.Follows.Follow(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err, "failed to follow user")
		return
	}
	response.Created(c, domain.FollowStatus{IsFollowing: true})
}

func (h *Handler) Unfollow(c *gin.Context) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.svc.Follows.Unfollow(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err, "failed to unfollow user")
		return
	}
	response.Success(c, domain.FollowStatus{IsFollowing: false})
}
