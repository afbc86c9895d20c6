package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string            `json:"status"`
	Components  map[string]string `json:"components"`
	Environment string            `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Components:  make(map[string]string, len(h.checks)),
		Environment: h.environment,
	}
	for _, check := range h.checks {
		status := "ok"
		if err := check.Check(ctx); err != nil {
			status = "error"
			resp.Status = "degraded"
			h.log.Error().Err(err).Str("component", check.Name).Msg("health check failed")
		}
		resp.Components[check.Name] = status
	}

	c.JSON(http.StatusOK, resp)
}
