package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store reads and writes DB-backed runtime settings.
type Store struct {
	db     *gorm.DB
	values values
}

// NewStore constructs a settings store. Call Refresh before reading.
func NewStore(db *gorm.DB) *Store {
	s := &Store{db: db}
	s.values.store(time.Time{}, nil)
	return s
}

// Refresh reloads all settings from the database into the in-memory snapshot.
func (s *Store) Refresh(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("settings: nil db")
	}

	var rows []models.Setting
	if errFind := s.db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	next := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		next[row.Key] = row.Value
		if row.UpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = row.UpdatedAt
		}
	}
	s.values.store(maxUpdatedAt, next)
	return nil
}

// Set upserts a setting and refreshes the snapshot.
func (s *Store) Set(ctx context.Context, key string, value any, updatedBy string) error {
	if s == nil || s.db == nil {
		return errors.New("settings: nil db")
	}
	key = strings.TrimSpace(key)
	if !IsKnownKey(key) {
		return fmt.Errorf("settings: unknown key %q", key)
	}
	raw, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("settings: encode %s: %w", key, errMarshal)
	}
	row := models.Setting{Key: key, Value: raw, UpdatedBy: updatedBy, UpdatedAt: time.Now().UTC()}
	if errSave := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&row).Error; errSave != nil {
		return fmt.Errorf("settings: save %s: %w", key, errSave)
	}
	return s.Refresh(ctx)
}

// Int returns the integer value for key, or def when unset or malformed.
func (s *Store) Int(key string, def int) int {
	if s == nil {
		return def
	}
	raw, ok := s.values.raw(key)
	if !ok {
		return def
	}
	if parsed, okParse := parseInt(raw); okParse {
		return parsed
	}
	return def
}

// Seconds returns the duration stored in seconds under key, or def.
func (s *Store) Seconds(key string, def time.Duration) time.Duration {
	secs := s.Int(key, -1)
	if secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

// UpdatedAt returns the newest update timestamp across settings.
func (s *Store) UpdatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.values.load().updatedAt
}
