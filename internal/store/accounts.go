package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountStore persists accounts keyed by provider account ID.
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore constructs an AccountStore.
func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// Create inserts a new account. It fails with a conflict when the ID exists.
func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(account)
	if res.Error != nil {
		return fmt.Errorf("store: create account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindConflict, fmt.Sprintf("account %s already exists", account.AccountID))
	}
	return nil
}

// Get loads one account.
func (s *AccountStore) Get(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	if errFind := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("account %s not found", accountID))
		}
		return nil, fmt.Errorf("store: get account: %w", errFind)
	}
	return &account, nil
}

// ListByOwner returns accounts created by ownerID via the owner index.
func (s *AccountStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Account, error) {
	var rows []models.Account
	if errFind := s.db.WithContext(ctx).
		Where("created_by = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list accounts by owner: %w", errFind)
	}
	return rows, nil
}

// ListAll returns every account.
func (s *AccountStore) ListAll(ctx context.Context) ([]models.Account, error) {
	var rows []models.Account
	if errFind := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: list accounts: %w", errFind)
	}
	return rows, nil
}

// ListIDsByStatus returns the IDs of accounts in status.
func (s *AccountStore) ListIDsByStatus(ctx context.Context, status string) ([]string, error) {
	var ids []string
	if errFind := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("status = ?", status).
		Order("account_id ASC").
		Pluck("account_id", &ids).Error; errFind != nil {
		return nil, fmt.Errorf("store: list account ids: %w", errFind)
	}
	return ids, nil
}

// UpdateQuota replaces the stored quota snapshot.
func (s *AccountStore) UpdateQuota(ctx context.Context, accountID string, snapshot datatypes.JSON) error {
	return s.update(ctx, accountID, map[string]any{"quota": snapshot})
}

// UpdateBillingAddress replaces the stored billing address.
func (s *AccountStore) UpdateBillingAddress(ctx context.Context, accountID string, address datatypes.JSON) error {
	return s.update(ctx, accountID, map[string]any{"billing_address": address})
}

// UpdateStatus sets the lifecycle status.
func (s *AccountStore) UpdateStatus(ctx context.Context, accountID, status string) error {
	return s.update(ctx, accountID, map[string]any{"status": status})
}

func (s *AccountStore) update(ctx context.Context, accountID string, patch map[string]any) error {
	patch["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Account{}).Where("account_id = ?", accountID).Updates(patch)
	if res.Error != nil {
		return fmt.Errorf("store: update account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(fmt.Sprintf("account %s not found", accountID))
	}
	return nil
}
