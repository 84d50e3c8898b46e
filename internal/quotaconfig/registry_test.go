package quotaconfig

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	row  *models.QuotaConfig
	puts int
}

func (m *memoryStore) Get(context.Context) (*models.QuotaConfig, error) {
	if m.row == nil {
		return nil, apperr.NotFound("quota configuration not initialized")
	}
	copied := *m.row
	return &copied, nil
}

func (m *memoryStore) Put(_ context.Context, row *models.QuotaConfig) error {
	copied := *row
	m.row = &copied
	m.puts++
	return nil
}

type memoryCache struct {
	values map[string][]byte
	fail   bool
}

func (c *memoryCache) Get(_ context.Context, name string, dest any) (bool, error) {
	if c.fail {
		return false, errors.New("cache down")
	}
	raw, ok := c.values[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, name string, value any) error {
	if c.fail {
		return errors.New("cache down")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.values == nil {
		c.values = map[string][]byte{}
	}
	c.values[name] = raw
	return nil
}

func (c *memoryCache) Delete(_ context.Context, name string) error {
	delete(c.values, name)
	return nil
}

func admin() actor.Actor {
	return actor.Actor{ID: "admin-1", Role: actor.RoleAdmin}
}

func TestDefaultDefinitions(t *testing.T) {
	defs, err := DefaultDefinitions()
	require.NoError(t, err)
	require.Len(t, defs, 3)

	enabled, highlighted := 0, 0
	for _, def := range defs {
		if def.Enabled {
			enabled++
		}
		if def.ShowInDashboard {
			highlighted++
		}
	}
	assert.Equal(t, 2, enabled)
	assert.Equal(t, 2, highlighted)
	assert.Equal(t, "claude-sonnet-4.5-v1", defs[0].ModelID)
	assert.Equal(t, "L-4B26E44A", defs[0].QuotaCodeTPM1M)
	assert.NoError(t, Validate(defs))
}

func TestValidate(t *testing.T) {
	def := func(id string, show bool) models.ModelDefinition {
		return models.ModelDefinition{ModelID: id, QuotaCodeTPM: "L-1", Enabled: true, ShowInDashboard: show}
	}

	cases := []struct {
		name string
		defs []models.ModelDefinition
		ok   bool
	}{
		{name: "empty", defs: nil, ok: true},
		{name: "none highlighted", defs: []models.ModelDefinition{def("a", false), def("b", false)}, ok: true},
		{name: "two highlighted", defs: []models.ModelDefinition{def("a", true), def("b", true), def("c", false)}, ok: true},
		{name: "three highlighted", defs: []models.ModelDefinition{def("a", true), def("b", true), def("c", true)}, ok: false},
		{name: "missing id", defs: []models.ModelDefinition{def(" ", false)}, ok: false},
		{name: "duplicate id", defs: []models.ModelDefinition{def("a", false), def("a", false)}, ok: false},
		{name: "field clash", defs: []models.ModelDefinition{def("a.b", false), def("a-b", false)}, ok: false},
		{name: "1m field clash", defs: []models.ModelDefinition{
			def("m-1m", false),
			{ModelID: "m", QuotaCodeTPM: "L-2", QuotaCodeTPM1M: "L-3", Has1MContext: true},
		}, ok: false},
		{name: "1m field clash reversed", defs: []models.ModelDefinition{
			{ModelID: "m", QuotaCodeTPM: "L-2", QuotaCodeTPM1M: "L-3", Has1MContext: true},
			def("m.1m", false),
		}, ok: false},
		{name: "1m fields distinct", defs: []models.ModelDefinition{
			{ModelID: "m", QuotaCodeTPM: "L-2", QuotaCodeTPM1M: "L-3", Has1MContext: true},
			def("n", false),
		}, ok: true},
		{name: "missing quota code", defs: []models.ModelDefinition{{ModelID: "a"}}, ok: false},
		{name: "1m without code", defs: []models.ModelDefinition{{ModelID: "a", QuotaCodeTPM: "L-1", Has1MContext: true}}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.defs)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestGetOrInitializeSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	reg := NewRegistry(store, nil)

	_, ok, err := reg.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	cfg, err := reg.GetOrInitialize(ctx, admin())
	require.NoError(t, err)
	assert.Len(t, cfg.Models, 3)
	assert.Equal(t, "admin-1", cfg.UpdatedBy)
	assert.Equal(t, models.QuotaConfigID, cfg.ConfigID)
	assert.Equal(t, 1, store.puts)

	// Second read must not reseed.
	_, err = reg.GetOrInitialize(ctx, admin())
	require.NoError(t, err)
	assert.Equal(t, 1, store.puts)
}

func TestRegistryRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	reg := NewRegistry(store, nil)
	user := actor.Actor{ID: "user-1", Role: actor.RoleUser}

	_, err := reg.GetOrInitialize(ctx, user)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
	_, err = reg.Update(ctx, user, nil)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
	_, err = reg.InitializeDefault(ctx, user)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
	assert.Nil(t, store.row)
}

func TestUpdateReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	cache := &memoryCache{}
	reg := NewRegistry(store, cache)

	_, err := reg.InitializeDefault(ctx, admin())
	require.NoError(t, err)

	replacement := []models.ModelDefinition{{ModelID: " custom-model ", QuotaCodeTPM: "L-9", Enabled: true, ShowInDashboard: true}}
	cfg, err := reg.Update(ctx, admin(), replacement)
	require.NoError(t, err)
	require.Len(t, cfg.Models, 1)
	assert.Equal(t, "custom-model", cfg.Models[0].ModelID)

	// Cached copy reflects the update.
	got, ok, err := reg.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Models, 1)

	// Store copy matches when the cache is bypassed.
	fresh := NewRegistry(store, nil)
	stored := fresh.Definitions(ctx)
	require.Len(t, stored, 1)
	assert.Equal(t, "L-9", stored[0].QuotaCodeTPM)
}

func TestUpdateRejectsTooManyHighlighted(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	reg := NewRegistry(store, nil)

	defs := []models.ModelDefinition{
		{ModelID: "a", QuotaCodeTPM: "L-1", ShowInDashboard: true},
		{ModelID: "b", QuotaCodeTPM: "L-2", ShowInDashboard: true},
		{ModelID: "c", QuotaCodeTPM: "L-3", ShowInDashboard: true},
	}
	_, err := reg.Update(ctx, admin(), defs)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Nil(t, store.row)
}

func TestCacheFailureFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	reg := NewRegistry(store, &memoryCache{fail: true})

	_, err := reg.InitializeDefault(ctx, admin())
	require.NoError(t, err)

	cfg, ok, err := reg.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, cfg.Models, 3)
}

func TestHighlighted(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(&memoryStore{}, nil)

	// Built-in definitions when nothing is stored.
	got := reg.Highlighted(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, "claude-sonnet-4.5-v1", got[0].ModelID)
	assert.Equal(t, "claude-opus-4.5", got[1].ModelID)

	_, err := reg.Update(ctx, admin(), []models.ModelDefinition{
		{ModelID: "a", QuotaCodeTPM: "L-1", Enabled: true, ShowInDashboard: false},
		{ModelID: "b", QuotaCodeTPM: "L-2", Enabled: false, ShowInDashboard: true},
	})
	require.NoError(t, err)
	got = reg.Highlighted(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ModelID)
}
