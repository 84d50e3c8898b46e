package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audited actions.
const (
	AuditActionCreateAccount        = "create_account"
	AuditActionExportCredentials    = "export_credentials"
	AuditActionRefreshQuota         = "refresh_quota"
	AuditActionUpdateBillingAddress = "update_billing_address"
	AuditActionDeleteAccount        = "delete_account"
)

// Audit outcomes.
const (
	AuditStatusSuccess = "success"
	AuditStatusDenied  = "denied"
)

// Audit severities.
const (
	AuditSeverityInfo    = "info"
	AuditSeverityWarning = "warning"
)

// AuditRetention is the fixed retention horizon for audit entries.
const AuditRetention = 90 * 24 * time.Hour

// AuditLog is an append-only record of a sensitive action.
type AuditLog struct {
	LogID     string    `gorm:"type:varchar(36);primaryKey"`                         // Generated entry ID.
	Timestamp time.Time `gorm:"primaryKey;index:idx_audit_logs_user_ts,priority:2"` // Time of the action.

	UserID       string         `gorm:"type:text;not null;index:idx_audit_logs_user_ts,priority:1"` // Acting user ID.
	Action       string         `gorm:"type:text;not null;index"`                                   // Action name.
	ResourceType string         `gorm:"type:text;not null"`                                         // Target resource type.
	ResourceID   string         `gorm:"type:text;not null"`                                         // Target resource ID.
	Details      datatypes.JSON `gorm:"type:jsonb"`                                                 // Free-form detail payload.
	IPAddress    string         `gorm:"type:text"`                                                  // Caller network address.
	UserAgent    string         `gorm:"type:text"`                                                  // Caller user agent.
	Status       string         `gorm:"type:text;not null"`                                         // Outcome status.
	Severity     string         `gorm:"type:text;not null"`                                         // Log severity.

	ExpiresAt time.Time `gorm:"not null;index"` // Retention horizon.
}

// TableName overrides the default table name.
func (AuditLog) TableName() string {
	return "audit_logs"
}
