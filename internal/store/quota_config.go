package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotaConfigStore persists the singleton quota configuration.
type QuotaConfigStore struct {
	db *gorm.DB
}

// NewQuotaConfigStore constructs a QuotaConfigStore.
func NewQuotaConfigStore(db *gorm.DB) *QuotaConfigStore {
	return &QuotaConfigStore{db: db}
}

// Get loads the configuration row.
func (s *QuotaConfigStore) Get(ctx context.Context) (*models.QuotaConfig, error) {
	var row models.QuotaConfig
	if errFind := s.db.WithContext(ctx).Where("config_id = ?", models.QuotaConfigID).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("quota configuration not initialized")
		}
		return nil, fmt.Errorf("store: get quota config: %w", errFind)
	}
	return &row, nil
}

// Put replaces the configuration row wholesale.
func (s *QuotaConfigStore) Put(ctx context.Context, row *models.QuotaConfig) error {
	row.ConfigID = models.QuotaConfigID
	if errSave := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "config_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"models", "updated_by", "updated_at"}),
	}).Create(row).Error; errSave != nil {
		return fmt.Errorf("store: put quota config: %w", errSave)
	}
	return nil
}
