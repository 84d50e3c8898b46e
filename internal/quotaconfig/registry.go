package quotaconfig

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"github.com/router-for-me/CloudAccountsBusiness/internal/quota"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

// MaxHighlighted is the maximum number of dashboard-highlighted models.
const MaxHighlighted = 2

const cacheKey = "quota-config"

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the registry's view of the singleton configuration.
type Config struct {
	ConfigID  string                   `json:"config_id"`
	Models    []models.ModelDefinition `json:"models"`
	UpdatedAt time.Time                `json:"updated_at"`
	UpdatedBy string                   `json:"updated_by"`
}

// Store persists the configuration row.
type Store interface {
	Get(ctx context.Context) (*models.QuotaConfig, error)
	Put(ctx context.Context, row *models.QuotaConfig) error
}

// Cache is an optional read-through cache for the configuration.
type Cache interface {
	Get(ctx context.Context, name string, dest any) (bool, error)
	Set(ctx context.Context, name string, value any) error
	Delete(ctx context.Context, name string) error
}

// Registry manages the admin-editable list of monitored models.
type Registry struct {
	store Store
	cache Cache
	now   func() time.Time
}

// NewRegistry constructs a Registry. cache may be nil.
func NewRegistry(store Store, cache Cache) *Registry {
	return &Registry{store: store, cache: cache, now: time.Now}
}

// DefaultDefinitions returns the built-in model definitions.
func DefaultDefinitions() ([]models.ModelDefinition, error) {
	var doc struct {
		Models []models.ModelDefinition `yaml:"models"`
	}
	if err := yaml.Unmarshal(defaultsYAML, &doc); err != nil {
		return nil, fmt.Errorf("quotaconfig: parse defaults: %w", err)
	}
	return doc.Models, nil
}

// Validate checks a complete definition list before it replaces the stored one.
func Validate(defs []models.ModelDefinition) error {
	highlighted := 0
	seenIDs := make(map[string]struct{}, len(defs))
	seenFields := make(map[string]string, len(defs))
	for i, def := range defs {
		id := strings.TrimSpace(def.ModelID)
		if id == "" {
			return apperr.Validationf("models[%d]: model_id is required", i)
		}
		if _, dup := seenIDs[id]; dup {
			return apperr.Validationf("models[%d]: duplicate model_id %q", i, id)
		}
		seenIDs[id] = struct{}{}
		fields := []string{quota.FieldName(id)}
		if def.Has1MContext {
			fields = append(fields, quota.FieldName1M(id))
		}
		for _, field := range fields {
			if other, clash := seenFields[field]; clash {
				return apperr.Validationf("models[%d]: model_id %q maps to quota field %q already used by %q", i, id, field, other)
			}
			seenFields[field] = id
		}
		if strings.TrimSpace(def.QuotaCodeTPM) == "" {
			return apperr.Validationf("models[%d]: quota_code_tpm is required", i)
		}
		if def.Has1MContext && strings.TrimSpace(def.QuotaCodeTPM1M) == "" {
			return apperr.Validationf("models[%d]: quota_code_tpm_1m is required when has_1m_context is set", i)
		}
		if def.ShowInDashboard {
			highlighted++
		}
	}
	if highlighted > MaxHighlighted {
		return apperr.Validationf("at most %d models can be shown in dashboard, got %d", MaxHighlighted, highlighted)
	}
	return nil
}

// Get returns the stored configuration. ok is false when none exists yet.
func (r *Registry) Get(ctx context.Context) (cfg Config, ok bool, err error) {
	if r.cache != nil {
		hit, errCache := r.cache.Get(ctx, cacheKey, &cfg)
		if errCache != nil {
			log.WithError(errCache).Warn("quota config cache read failed")
		} else if hit {
			return cfg, true, nil
		}
	}

	row, err := r.store.Get(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Config{}, false, nil
		}
		return Config{}, false, err
	}
	cfg, err = fromRow(row)
	if err != nil {
		return Config{}, false, err
	}
	r.remember(ctx, cfg)
	return cfg, true, nil
}

// GetOrInitialize returns the configuration, seeding defaults on first access.
func (r *Registry) GetOrInitialize(ctx context.Context, a actor.Actor) (Config, error) {
	if err := actor.Require(a, actor.RoleAdmin); err != nil {
		return Config{}, err
	}
	cfg, ok, err := r.Get(ctx)
	if err != nil {
		return Config{}, err
	}
	if ok {
		return cfg, nil
	}
	log.Info("quota config not found, initializing defaults")
	return r.InitializeDefault(ctx, a)
}

// Update replaces the whole definition list.
func (r *Registry) Update(ctx context.Context, a actor.Actor, defs []models.ModelDefinition) (Config, error) {
	if err := actor.Require(a, actor.RoleAdmin); err != nil {
		return Config{}, err
	}
	if defs == nil {
		defs = []models.ModelDefinition{}
	}
	for i := range defs {
		defs[i].ModelID = strings.TrimSpace(defs[i].ModelID)
	}
	if err := Validate(defs); err != nil {
		return Config{}, err
	}

	payload, err := json.Marshal(defs)
	if err != nil {
		return Config{}, fmt.Errorf("quotaconfig: encode models: %w", err)
	}
	row := &models.QuotaConfig{
		ConfigID:  models.QuotaConfigID,
		Models:    datatypes.JSON(payload),
		UpdatedBy: a.ID,
		UpdatedAt: r.now().UTC(),
	}
	if errPut := r.store.Put(ctx, row); errPut != nil {
		return Config{}, errPut
	}

	cfg := Config{ConfigID: row.ConfigID, Models: defs, UpdatedAt: row.UpdatedAt, UpdatedBy: row.UpdatedBy}
	r.remember(ctx, cfg)
	log.WithFields(log.Fields{
		"updated_by": a.ID,
		"models":     len(defs),
	}).Info("quota config updated")
	return cfg, nil
}

// InitializeDefault replaces the configuration with the built-in definitions.
func (r *Registry) InitializeDefault(ctx context.Context, a actor.Actor) (Config, error) {
	defs, err := DefaultDefinitions()
	if err != nil {
		return Config{}, err
	}
	return r.Update(ctx, a, defs)
}

// Definitions returns the stored definitions, or nil when none exist. Errors are
// logged and reported as nil so callers fall back to the built-in models.
func (r *Registry) Definitions(ctx context.Context) []models.ModelDefinition {
	cfg, ok, err := r.Get(ctx)
	if err != nil {
		log.WithError(err).Warn("quota config unavailable, using built-in models")
		return nil
	}
	if !ok {
		return nil
	}
	return cfg.Models
}

// Highlighted returns the definitions flagged for the dashboard, falling back
// to the built-in definitions when nothing is stored.
func (r *Registry) Highlighted(ctx context.Context) []models.ModelDefinition {
	defs := r.Definitions(ctx)
	if defs == nil {
		defaults, err := DefaultDefinitions()
		if err != nil {
			return nil
		}
		defs = defaults
	}
	out := make([]models.ModelDefinition, 0, MaxHighlighted)
	for _, def := range defs {
		if def.ShowInDashboard {
			out = append(out, def)
		}
		if len(out) == MaxHighlighted {
			break
		}
	}
	return out
}

func (r *Registry) remember(ctx context.Context, cfg Config) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey, cfg); err != nil {
		log.WithError(err).Warn("quota config cache write failed")
	}
}

func fromRow(row *models.QuotaConfig) (Config, error) {
	cfg := Config{ConfigID: row.ConfigID, UpdatedAt: row.UpdatedAt, UpdatedBy: row.UpdatedBy}
	if len(row.Models) > 0 {
		if err := json.Unmarshal(row.Models, &cfg.Models); err != nil {
			return Config{}, fmt.Errorf("quotaconfig: decode models: %w", err)
		}
	}
	if cfg.Models == nil {
		cfg.Models = []models.ModelDefinition{}
	}
	return cfg, nil
}
