package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"gorm.io/gorm"
)

const defaultAuditListLimit = 100

// AuditStore appends and queries audit entries.
type AuditStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAuditStore constructs an AuditStore.
func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db, now: time.Now}
}

// Append stamps the entry with an ID, timestamp and expiry, then inserts it.
func (s *AuditStore) Append(ctx context.Context, entry *models.AuditLog) error {
	if entry.LogID == "" {
		entry.LogID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	if entry.ExpiresAt.IsZero() {
		entry.ExpiresAt = entry.Timestamp.Add(models.AuditRetention)
	}
	if entry.Status == "" {
		entry.Status = models.AuditStatusSuccess
	}
	if entry.Severity == "" {
		entry.Severity = models.AuditSeverityInfo
	}
	if errCreate := s.db.WithContext(ctx).Create(entry).Error; errCreate != nil {
		return fmt.Errorf("store: append audit entry: %w", errCreate)
	}
	return nil
}

// AuditQuery filters audit listings.
type AuditQuery struct {
	UserID string
	Action string
	Since  time.Time
	Limit  int
}

// List returns entries newest first. A UserID filter is served from the
// actor+time index.
func (s *AuditStore) List(ctx context.Context, q AuditQuery) ([]models.AuditLog, error) {
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = defaultAuditListLimit
	}
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if userID := strings.TrimSpace(q.UserID); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action := strings.TrimSpace(q.Action); action != "" {
		query = query.Where("action = ?", action)
	}
	if !q.Since.IsZero() {
		query = query.Where("timestamp >= ?", q.Since.UTC())
	}

	var rows []models.AuditLog
	if errFind := query.Order("timestamp DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list audit entries: %w", errFind)
	}
	return rows, nil
}

// DeleteExpiredBatch removes up to limit entries whose expiry is before cutoff.
func (s *AuditStore) DeleteExpiredBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	// Limited subquery keeps each delete short.
	res := s.db.WithContext(ctx).Exec(`
		DELETE FROM audit_logs
		WHERE log_id IN (
			SELECT log_id FROM audit_logs
			WHERE expires_at < ?
			ORDER BY expires_at ASC
			LIMIT ?
		)
	`, cutoff.UTC(), limit)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
