package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"swapshelf/internal/service"
)

type createUserRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	Credits     int64  `json:"credits"`
}

func (h HandlerSet) AdminCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	user, err := h.catalog.CreateUser(c.Request.Context(), service.CreateUserInput{
		ID:          req.ID,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Credits:     req.Credits,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h HandlerSet) AdminListFlagged(c *gin.Context) {
	limit, offset := pageParams(c)
	listings, err := h.catalog.ListFlagged(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": listings})
}

func (h HandlerSet) AdminListPending(c *gin.Context) {
	if h.pending == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "review_queue_unavailable"})
		return
	}
	limit, _ := pageParams(c)
	items, err := h.pending.List(c.Request.Context(), int64(limit))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
