package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"github.com/router-for-me/CloudAccountsBusiness/internal/quotaconfig"
)

// QuotaConfigService manages the monitored model list.
type QuotaConfigService interface {
	GetOrInitialize(ctx context.Context, a actor.Actor) (quotaconfig.Config, error)
	Update(ctx context.Context, a actor.Actor, defs []models.ModelDefinition) (quotaconfig.Config, error)
}

// QuotaConfigHandler serves the admin quota configuration endpoints.
type QuotaConfigHandler struct {
	registry QuotaConfigService
}

// NewQuotaConfigHandler constructs a QuotaConfigHandler.
func NewQuotaConfigHandler(registry QuotaConfigService) *QuotaConfigHandler {
	return &QuotaConfigHandler{registry: registry}
}

type updateQuotaConfigRequest struct {
	Models []models.ModelDefinition `json:"models"`
}

// Get returns the configuration, seeding the defaults on first read.
func (h *QuotaConfigHandler) Get(c *gin.Context) {
	cfg, err := h.registry.GetOrInitialize(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Update replaces the model list.
func (h *QuotaConfigHandler) Update(c *gin.Context) {
	var body updateQuotaConfigRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Models == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "models is required"})
		return
	}
	cfg, err := h.registry.Update(c.Request.Context(), currentActor(c), body.Models)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
