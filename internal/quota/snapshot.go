package quota

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
)

// Reserved snapshot keys that are not quota metrics.
const (
	keyLastUpdated     = "last_updated"
	keyNote            = "note"
	keyModelsAvailable = "models_available"
	keyModelIDs        = "model_ids"
)

const (
	suffixTPM   = "_tpm"
	suffix1MTPM = "_1m_tpm"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+_tpm$`)

// legacyFieldNames maps hand-written field names from older snapshots onto the
// names derived from model IDs.
var legacyFieldNames = map[string]string{
	"claude_sonnet_45_v1_tpm":    "claude_sonnet_4_5_v1_tpm",
	"claude_sonnet_45_v1_1m_tpm": "claude_sonnet_4_5_v1_1m_tpm",
	"claude_sonnet_45_tpm":       "claude_sonnet_4_5_v1_tpm",
	"claude_opus_45_tpm":         "claude_opus_4_5_tpm",
}

// normalizeModelID replaces every non-alphanumeric character with an underscore.
func normalizeModelID(modelID string) string {
	var b strings.Builder
	b.Grow(len(modelID))
	for _, r := range strings.TrimSpace(modelID) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// FieldName returns the standard-context TPM field for a model ID.
func FieldName(modelID string) string {
	return normalizeModelID(modelID) + suffixTPM
}

// FieldName1M returns the extended-context TPM field for a model ID.
func FieldName1M(modelID string) string {
	return normalizeModelID(modelID) + suffix1MTPM
}

// FieldNames returns every field the given definitions can produce.
func FieldNames(defs []models.ModelDefinition) []string {
	out := make([]string, 0, len(defs)*2)
	for _, def := range defs {
		if strings.TrimSpace(def.ModelID) == "" {
			continue
		}
		out = append(out, FieldName(def.ModelID))
		if def.Has1MContext {
			out = append(out, FieldName1M(def.ModelID))
		}
	}
	return out
}

// Snapshot is an account's quota metrics plus retrieval metadata.
type Snapshot struct {
	Values          map[string]int64
	LastUpdated     time.Time
	Note            string
	ModelsAvailable int
	ModelIDs        []string
}

// NewSnapshot returns an empty snapshot stamped with now.
func NewSnapshot(now time.Time) Snapshot {
	return Snapshot{Values: map[string]int64{}, LastUpdated: now.UTC()}
}

// Get returns the value of a metric, or zero.
func (s Snapshot) Get(field string) int64 {
	return s.Values[field]
}

// HasData reports whether any metric is non-zero.
func (s Snapshot) HasData() bool {
	for _, v := range s.Values {
		if v > 0 {
			return true
		}
	}
	return false
}

// Validate checks metric keys against the field-naming rule and, when allowed is
// non-empty, against the set of fields the registry can produce.
func (s Snapshot) Validate(allowed []string) error {
	var allowedSet map[string]struct{}
	if len(allowed) > 0 {
		allowedSet = make(map[string]struct{}, len(allowed))
		for _, name := range allowed {
			allowedSet[name] = struct{}{}
		}
	}
	for key, value := range s.Values {
		if !fieldNamePattern.MatchString(key) {
			return apperr.Validationf("quota field %q does not follow the field naming rule", key)
		}
		if allowedSet != nil {
			if _, ok := allowedSet[key]; !ok {
				return apperr.Validationf("quota field %q is not produced by any model definition", key)
			}
		}
		if value < 0 {
			return apperr.Validationf("quota field %q is negative", key)
		}
	}
	return nil
}

// MarshalJSON flattens metrics and metadata into one object.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Values)+4)
	for k, v := range s.Values {
		out[k] = v
	}
	out[keyLastUpdated] = int64(0)
	if !s.LastUpdated.IsZero() {
		out[keyLastUpdated] = s.LastUpdated.Unix()
	}
	if s.Note != "" {
		out[keyNote] = s.Note
	}
	if s.ModelsAvailable > 0 || len(s.ModelIDs) > 0 {
		out[keyModelsAvailable] = s.ModelsAvailable
		out[keyModelIDs] = s.ModelIDs
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a flattened snapshot. Legacy field names are translated
// unless the derived name is also present.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next := Snapshot{Values: map[string]int64{}}
	legacy := map[string]int64{}
	for key, value := range raw {
		switch key {
		case keyLastUpdated:
			var ts float64
			if err := json.Unmarshal(value, &ts); err != nil {
				return fmt.Errorf("quota snapshot: last_updated: %w", err)
			}
			if ts > 0 {
				next.LastUpdated = time.Unix(int64(ts), 0).UTC()
			}
		case keyNote:
			_ = json.Unmarshal(value, &next.Note)
		case keyModelsAvailable:
			_ = json.Unmarshal(value, &next.ModelsAvailable)
		case keyModelIDs:
			_ = json.Unmarshal(value, &next.ModelIDs)
		default:
			var n float64
			if err := json.Unmarshal(value, &n); err != nil {
				continue
			}
			if mapped, ok := legacyFieldNames[key]; ok {
				legacy[mapped] = toInt(n)
				continue
			}
			next.Values[key] = toInt(n)
		}
	}
	for key, value := range legacy {
		if _, ok := next.Values[key]; !ok {
			next.Values[key] = value
		}
	}
	*s = next
	return nil
}

// Fields returns metric names in sorted order.
func (s Snapshot) Fields() []string {
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseSnapshot decodes a stored snapshot. Empty input yields an empty snapshot.
func ParseSnapshot(data []byte) (Snapshot, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Snapshot{Values: map[string]int64{}}, nil
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{Values: map[string]int64{}}, err
	}
	return s, nil
}

func toInt(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
