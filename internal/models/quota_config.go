package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuotaConfigID is the fixed key of the singleton quota configuration.
const QuotaConfigID = "global-quota-config"

// QuotaConfig stores the admin-editable list of monitored model definitions.
type QuotaConfig struct {
	ConfigID  string         `gorm:"type:varchar(64);primaryKey"`      // Singleton key.
	Models    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Ordered model definitions.
	UpdatedBy string         `gorm:"type:text;not null"`               // Last editor.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime"`          // Last update timestamp.
}

// TableName overrides the default table name.
func (QuotaConfig) TableName() string {
	return "quota_configs"
}

// ModelDefinition describes one monitored model and its quota codes.
type ModelDefinition struct {
	ModelID         string `json:"model_id" yaml:"model_id"`
	DisplayName     string `json:"display_name" yaml:"display_name"`
	QuotaCodeTPM    string `json:"quota_code_tpm" yaml:"quota_code_tpm"`
	QuotaCodeRPM    string `json:"quota_code_rpm,omitempty" yaml:"quota_code_rpm"`
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	ShowInDashboard bool   `json:"show_in_dashboard" yaml:"show_in_dashboard"`
	Has1MContext    bool   `json:"has_1m_context" yaml:"has_1m_context"`
	QuotaCodeTPM1M  string `json:"quota_code_tpm_1m,omitempty" yaml:"quota_code_tpm_1m"`
	QuotaCodeRPM1M  string `json:"quota_code_rpm_1m,omitempty" yaml:"quota_code_rpm_1m"`
}
