package quota

import (
	"context"
	"strings"
	"time"

	"github.com/router-for-me/CloudAccountsBusiness/internal/cloud"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	log "github.com/sirupsen/logrus"
)

// Built-in quota codes queried when no registry definitions are available.
const (
	SonnetModelID     = "claude-sonnet-4.5-v1"
	SonnetQuotaCode   = "L-27C57EE8"
	Sonnet1MQuotaCode = "L-4B26E44A"
	OpusModelID       = "claude-opus-4.5"
	OpusQuotaCode     = "L-3ABF6ACC"
)

const (
	capabilityProvider = "Anthropic"
	// NoteCapabilityListing annotates snapshots built from the model listing.
	NoteCapabilityListing = "TPM quota not directly available from Bedrock API - requires Service Quotas API access"
	// NoteUnavailable annotates snapshots when every source failed.
	NoteUnavailable = "quota information unavailable - Service Quotas and Bedrock APIs both failed"
)

// FallbackDefinitions returns the two built-in model definitions.
func FallbackDefinitions() []models.ModelDefinition {
	return []models.ModelDefinition{
		{
			ModelID:        SonnetModelID,
			DisplayName:    "Claude Sonnet 4.5 V1",
			QuotaCodeTPM:   SonnetQuotaCode,
			Enabled:        true,
			Has1MContext:   true,
			QuotaCodeTPM1M: Sonnet1MQuotaCode,
		},
		{
			ModelID:      OpusModelID,
			DisplayName:  "Claude Opus 4.5",
			QuotaCodeTPM: OpusQuotaCode,
			Enabled:      true,
		},
	}
}

// EnabledDefinitions returns the enabled subset in registry order.
func EnabledDefinitions(defs []models.ModelDefinition) []models.ModelDefinition {
	out := make([]models.ModelDefinition, 0, len(defs))
	for _, def := range defs {
		if def.Enabled && strings.TrimSpace(def.ModelID) != "" {
			out = append(out, def)
		}
	}
	return out
}

// AllowedFields returns every metric name Fetch can produce for defs.
func AllowedFields(defs []models.ModelDefinition) []string {
	return append(FieldNames(EnabledDefinitions(defs)), FieldNames(FallbackDefinitions())...)
}

// Source turns model definitions into a quota snapshot.
type Source struct {
	api cloud.QuotaAPI
	now func() time.Time
}

// NewSource constructs a quota source.
func NewSource(api cloud.QuotaAPI) *Source {
	return &Source{api: api, now: time.Now}
}

// Fetch queries every enabled definition. It never fails: lookups that error are
// recorded as zero, an empty definition list falls back to the built-in models,
// and if those yield nothing the model listing is used instead.
func (s *Source) Fetch(ctx context.Context, creds cloud.Credentials, region string, defs []models.ModelDefinition) Snapshot {
	enabled := EnabledDefinitions(defs)
	if len(enabled) > 0 {
		return s.query(ctx, creds, region, enabled)
	}

	log.WithField("region", region).Info("quota source: no enabled model definitions, using built-in models")
	snap := s.query(ctx, creds, region, FallbackDefinitions())
	if snap.HasData() {
		return snap
	}
	return s.capabilityListing(ctx, creds, region, snap)
}

func (s *Source) query(ctx context.Context, creds cloud.Credentials, region string, defs []models.ModelDefinition) Snapshot {
	snap := NewSnapshot(s.now())
	for _, def := range defs {
		snap.Values[FieldName(def.ModelID)] = s.lookup(ctx, creds, region, def.ModelID, def.QuotaCodeTPM)
		if def.Has1MContext {
			snap.Values[FieldName1M(def.ModelID)] = s.lookup(ctx, creds, region, def.ModelID, def.QuotaCodeTPM1M)
		}
	}
	return snap
}

func (s *Source) lookup(ctx context.Context, creds cloud.Credentials, region, modelID, quotaCode string) int64 {
	quotaCode = strings.TrimSpace(quotaCode)
	if quotaCode == "" {
		return 0
	}
	value, err := s.api.ServiceQuota(ctx, creds, region, cloud.QuotaServiceCode, quotaCode)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"model_id":   modelID,
			"quota_code": quotaCode,
			"error_code": cloud.ErrorCode(err),
		}).Warn("quota source: lookup failed")
		return 0
	}
	return toInt(value)
}

func (s *Source) capabilityListing(ctx context.Context, creds cloud.Credentials, region string, zero Snapshot) Snapshot {
	snap := NewSnapshot(s.now())
	for field := range zero.Values {
		snap.Values[field] = 0
	}

	ids, err := s.api.FoundationModels(ctx, creds, region, capabilityProvider)
	if err != nil {
		log.WithError(err).WithField("error_code", cloud.ErrorCode(err)).Warn("quota source: model listing failed")
		snap.Note = NoteUnavailable
		return snap
	}

	matched := make([]string, 0, len(ids))
	for _, id := range ids {
		lower := strings.ToLower(id)
		if strings.Contains(lower, "claude") && (strings.Contains(lower, "4.5") || strings.Contains(lower, "4-5") || strings.Contains(lower, "opus-4")) {
			matched = append(matched, id)
		}
	}
	snap.Note = NoteCapabilityListing
	snap.ModelsAvailable = len(matched)
	snap.ModelIDs = matched
	return snap
}
