package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CloudAccountsBusiness/internal/account"
	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"github.com/router-for-me/CloudAccountsBusiness/internal/quota"
)

// AccountService is the lifecycle surface served over HTTP.
type AccountService interface {
	Create(ctx context.Context, a actor.Actor, in account.CreateInput) (account.View, error)
	List(ctx context.Context, a actor.Actor) ([]account.View, error)
	Get(ctx context.Context, a actor.Actor, accountID string) (account.View, error)
	GetQuota(ctx context.Context, a actor.Actor, accountID string) (quota.Snapshot, error)
	GetBillingAddress(ctx context.Context, a actor.Actor, accountID string) (models.BillingAddress, error)
	ExportCredentials(ctx context.Context, a actor.Actor, accountID string) (account.ExportedCredentials, error)
	RefreshQuota(ctx context.Context, a actor.Actor, accountID string) (quota.Snapshot, error)
	UpdateBillingAddress(ctx context.Context, a actor.Actor, accountID string, address models.BillingAddress) error
	Delete(ctx context.Context, a actor.Actor, accountID string) error
}

// AccountHandler serves account lifecycle endpoints.
type AccountHandler struct {
	svc AccountService
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(svc AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Create onboards an account from submitted credentials.
func (h *AccountHandler) Create(c *gin.Context) {
	var body account.CreateInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	view, err := h.svc.Create(c.Request.Context(), currentActor(c), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// List returns the accounts visible to the caller.
func (h *AccountHandler) List(c *gin.Context) {
	views, err := h.svc.List(c.Request.Context(), currentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if views == nil {
		views = []account.View{}
	}
	c.JSON(http.StatusOK, views)
}

// Get returns one account.
func (h *AccountHandler) Get(c *gin.Context) {
	view, err := h.svc.Get(c.Request.Context(), currentActor(c), accountIDParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete soft-deletes an account.
func (h *AccountHandler) Delete(c *gin.Context) {
	id := accountIDParam(c)
	if err := h.svc.Delete(c.Request.Context(), currentActor(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Account %s deleted successfully", id)})
}

// ExportCredentials returns decrypted credentials to an admin.
func (h *AccountHandler) ExportCredentials(c *gin.Context) {
	creds, err := h.svc.ExportCredentials(c.Request.Context(), currentActor(c), accountIDParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, creds)
}

// GetBillingAddress returns the stored billing address.
func (h *AccountHandler) GetBillingAddress(c *gin.Context) {
	address, err := h.svc.GetBillingAddress(c.Request.Context(), currentActor(c), accountIDParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, address)
}

// UpdateBillingAddress replaces the billing address.
func (h *AccountHandler) UpdateBillingAddress(c *gin.Context) {
	var body models.BillingAddress
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.svc.UpdateBillingAddress(c.Request.Context(), currentActor(c), accountIDParam(c), body); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Billing address updated successfully"})
}

// GetQuota returns the stored quota snapshot.
func (h *AccountHandler) GetQuota(c *gin.Context) {
	snapshot, err := h.svc.GetQuota(c.Request.Context(), currentActor(c), accountIDParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// RefreshQuota refetches the quota snapshot from the provider.
func (h *AccountHandler) RefreshQuota(c *gin.Context) {
	snapshot, err := h.svc.RefreshQuota(c.Request.Context(), currentActor(c), accountIDParam(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Quota refreshed successfully", "quota": snapshot})
}

func accountIDParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("account_id"))
}
