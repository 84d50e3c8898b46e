package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
)

// AuthHandler serves identity endpoints.
type AuthHandler struct{}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me returns the authenticated caller.
func (h *AuthHandler) Me(c *gin.Context) {
	a, ok := actor.FromContext(c.Request.Context())
	if !ok || a.ID == "" {
		writeError(c, apperr.New(apperr.KindUnauthorized, "authentication required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":  a.ID,
		"email":    a.Email,
		"username": a.Username,
		"role":     a.Role,
	})
}
