package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"github.com/router-for-me/CloudAccountsBusiness/internal/store"
)

// AuditLister reads audit entries.
type AuditLister interface {
	List(ctx context.Context, q store.AuditQuery) ([]models.AuditLog, error)
}

// AuditLogHandler serves the audit trail to admins.
type AuditLogHandler struct {
	audit AuditLister
}

// NewAuditLogHandler constructs an AuditLogHandler.
func NewAuditLogHandler(audit AuditLister) *AuditLogHandler {
	return &AuditLogHandler{audit: audit}
}

// auditLogResponse is one audit entry.
type auditLogResponse struct {
	LogID        string          `json:"log_id"`
	Timestamp    int64           `json:"timestamp"`
	UserID       string          `json:"user_id"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	Status       string          `json:"status"`
	Severity     string          `json:"severity"`
	ExpiresAt    int64           `json:"ttl"`
}

// List returns audit entries newest first. Filters: user_id, action,
// since (unix seconds or RFC3339) and limit.
func (h *AuditLogHandler) List(c *gin.Context) {
	if err := actor.Require(currentActor(c), actor.RoleAdmin); err != nil {
		writeError(c, err)
		return
	}

	q := store.AuditQuery{
		UserID: strings.TrimSpace(c.Query("user_id")),
		Action: strings.TrimSpace(c.Query("action")),
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, ok := parseSince(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		q.Since = since
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, errAtoi := strconv.Atoi(raw)
		if errAtoi != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		q.Limit = limit
	}

	rows, err := h.audit.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]auditLogResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, auditLogResponse{
			LogID:        row.LogID,
			Timestamp:    row.Timestamp.Unix(),
			UserID:       row.UserID,
			Action:       row.Action,
			ResourceType: row.ResourceType,
			ResourceID:   row.ResourceID,
			Details:      json.RawMessage(row.Details),
			IPAddress:    row.IPAddress,
			UserAgent:    row.UserAgent,
			Status:       row.Status,
			Severity:     row.Severity,
			ExpiresAt:    row.ExpiresAt.Unix(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"audit_logs": out})
}

func parseSince(raw string) (time.Time, bool) {
	if secs, errParse := strconv.ParseInt(raw, 10, 64); errParse == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	if t, errParse := time.Parse(time.RFC3339, raw); errParse == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
