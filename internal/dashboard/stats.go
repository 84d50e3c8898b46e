package dashboard

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/router-for-me/CloudAccountsBusiness/internal/account"
	"github.com/router-for-me/CloudAccountsBusiness/internal/actor"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"github.com/router-for-me/CloudAccountsBusiness/internal/quota"
)

// Legacy summary fields kept for older dashboard clients.
const (
	legacySonnetField   = "claude_sonnet_45_v1_tpm"
	legacySonnet1MField = "claude_sonnet_45_v1_1m_tpm"
	legacyOpusField     = "claude_opus_45_tpm"
)

// AccountLister lists the accounts visible to an actor.
type AccountLister interface {
	List(ctx context.Context, a actor.Actor) ([]account.View, error)
}

// HighlightSource returns the dashboard-highlighted model definitions.
type HighlightSource interface {
	Highlighted(ctx context.Context) []models.ModelDefinition
}

// ModelQuota is the total quota of one highlighted model.
type ModelQuota struct {
	ModelID     string `json:"model_id"`
	DisplayName string `json:"display_name"`
	TotalTPM    int64  `json:"total_tpm"`
}

// AccountQuota summarises the highlighted quota fields of one account.
type AccountQuota struct {
	AccountID   string
	AccountName string
	Fields      map[string]int64
}

// MarshalJSON flattens the quota fields next to the account identifiers.
func (q AccountQuota) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(q.Fields)+2)
	for k, v := range q.Fields {
		out[k] = v
	}
	out["account_id"] = q.AccountID
	out["account_name"] = q.AccountName
	return json.Marshal(out)
}

// Stats is the dashboard summary.
type Stats struct {
	TotalAccounts     int            `json:"total_accounts"`
	ActiveAccounts    int            `json:"active_accounts"`
	TotalSonnetTPM    int64          `json:"total_sonnet_tpm"`
	TotalOpusTPM      int64          `json:"total_opus_tpm"`
	ModelQuotas       []ModelQuota   `json:"model_quotas"`
	AccountsWithQuota []AccountQuota `json:"accounts_with_quota"`
}

// Aggregator computes dashboard statistics over the accounts an actor can see.
type Aggregator struct {
	accounts   AccountLister
	highlights HighlightSource
}

// NewAggregator constructs an Aggregator.
func NewAggregator(accounts AccountLister, highlights HighlightSource) *Aggregator {
	return &Aggregator{accounts: accounts, highlights: highlights}
}

// Stats returns totals for the actor's accounts. Admins see every account.
func (g *Aggregator) Stats(ctx context.Context, a actor.Actor) (Stats, error) {
	views, err := g.accounts.List(ctx, a)
	if err != nil {
		return Stats{}, err
	}
	highlighted := g.highlights.Highlighted(ctx)

	stats := Stats{
		TotalAccounts:     len(views),
		ModelQuotas:       make([]ModelQuota, 0, len(highlighted)),
		AccountsWithQuota: []AccountQuota{},
	}
	totals := make([]int64, len(highlighted))

	for _, view := range views {
		if view.Status == models.AccountStatusActive {
			stats.ActiveAccounts++
		}
		summary := AccountQuota{
			AccountID:   view.AccountID,
			AccountName: view.AccountName,
			Fields:      map[string]int64{},
		}
		hasQuota := false
		for i, def := range highlighted {
			field := quota.FieldName(def.ModelID)
			value := view.Quota.Get(field)
			summary.Fields[field] = value
			var value1M int64
			if def.Has1MContext {
				field1M := quota.FieldName1M(def.ModelID)
				value1M = view.Quota.Get(field1M)
				summary.Fields[field1M] = value1M
			}
			if value > 0 || value1M > 0 {
				hasQuota = true
			}
			totals[i] += value + value1M

			lower := strings.ToLower(def.ModelID)
			switch {
			case strings.Contains(lower, "sonnet"):
				stats.TotalSonnetTPM += value + value1M
			case strings.Contains(lower, "opus"):
				stats.TotalOpusTPM += value + value1M
			}
		}
		summary.Fields[legacySonnetField] = view.Quota.Get(quota.FieldName(quota.SonnetModelID))
		summary.Fields[legacySonnet1MField] = view.Quota.Get(quota.FieldName1M(quota.SonnetModelID))
		summary.Fields[legacyOpusField] = view.Quota.Get(quota.FieldName(quota.OpusModelID))
		if hasQuota {
			stats.AccountsWithQuota = append(stats.AccountsWithQuota, summary)
		}
	}

	for i, def := range highlighted {
		name := strings.TrimSpace(def.DisplayName)
		if name == "" {
			name = def.ModelID
		}
		stats.ModelQuotas = append(stats.ModelQuotas, ModelQuota{
			ModelID:     def.ModelID,
			DisplayName: name,
			TotalTPM:    totals[i],
		})
	}
	return stats, nil
}
