package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"swapshelf/internal/middleware"
	"swapshelf/internal/service"
)

type transferRequest struct {
	GiverID    string `json:"giverId" binding:"required"`
	ReceiverID string `json:"receiverId" binding:"required"`
	ItemID     string `json:"itemId" binding:"required"`
}

func (h HandlerSet) CreateTransfer(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	record, err := h.transfers.Transfer(c.Request.Context(), service.TransferInput{
		GiverID:     req.GiverID,
		ReceiverID:  req.ReceiverID,
		ItemID:      req.ItemID,
		RequesterID: user.ID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "transfer completed",
		"transaction": record,
	})
}
