package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/dashboard"
)

// StatsSource computes dashboard statistics.
type StatsSource interface {
	Stats(ctx context.Context, a actor.Actor) (dashboard.Stats, error)
}

// DashboardHandler serves dashboard summaries.
type DashboardHandler struct {
	stats StatsSource
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(stats StatsSource) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

// Stats returns account and highlighted-model quota totals.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
