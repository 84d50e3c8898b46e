package quota

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/router-for-me/CloudAccountsBusiness/internal/apperr"
	"github.com/router-for-me/CloudAccountsBusiness/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldNames(t *testing.T) {
	assert.Equal(t, "claude_sonnet_4_5_v1_tpm", FieldName("claude-sonnet-4.5-v1"))
	assert.Equal(t, "claude_sonnet_4_5_v1_1m_tpm", FieldName1M("claude-sonnet-4.5-v1"))
	assert.Equal(t, "anthropic_claude_opus_4_5_v1_0_tpm", FieldName("anthropic.claude-opus-4-5/v1:0"))

	defs := []models.ModelDefinition{
		{ModelID: "a-1", Has1MContext: true},
		{ModelID: "b.2"},
		{ModelID: " "},
	}
	assert.Equal(t, []string{"a_1_tpm", "a_1_1m_tpm", "b_2_tpm"}, FieldNames(defs))
}

func TestSnapshotJSONFlattensMetadata(t *testing.T) {
	snap := NewSnapshot(time.Unix(1767225600, 0))
	snap.Values["claude_opus_4_5_tpm"] = 200000
	snap.Note = "note"

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(200000), raw["claude_opus_4_5_tpm"])
	assert.Equal(t, float64(1767225600), raw["last_updated"])
	assert.Equal(t, "note", raw["note"])
	assert.NotContains(t, raw, "model_ids")

	parsed, err := ParseSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap.Values, parsed.Values)
	assert.Equal(t, snap.LastUpdated, parsed.LastUpdated)
}

func TestSnapshotReadsLegacyFieldNames(t *testing.T) {
	legacy := []byte(`{"claude_sonnet_45_v1_tpm": 400000, "claude_sonnet_45_v1_1m_tpm": 200000, "claude_opus_45_tpm": 100000, "last_updated": 1700000000}`)
	snap, err := ParseSnapshot(legacy)
	require.NoError(t, err)

	assert.Equal(t, int64(400000), snap.Get("claude_sonnet_4_5_v1_tpm"))
	assert.Equal(t, int64(200000), snap.Get("claude_sonnet_4_5_v1_1m_tpm"))
	assert.Equal(t, int64(100000), snap.Get("claude_opus_4_5_tpm"))
	assert.NotContains(t, snap.Values, "claude_opus_45_tpm")
	assert.NoError(t, snap.Validate(AllowedFields(nil)))
}

func TestSnapshotDerivedNameWinsOverLegacy(t *testing.T) {
	snap, err := ParseSnapshot([]byte(`{"claude_opus_45_tpm": 1, "claude_opus_4_5_tpm": 2}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Get("claude_opus_4_5_tpm"))
}

func TestParseSnapshotEmpty(t *testing.T) {
	snap, err := ParseSnapshot(nil)
	require.NoError(t, err)
	assert.Empty(t, snap.Values)
	assert.True(t, snap.LastUpdated.IsZero())

	snap, err = ParseSnapshot([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, snap.Values)
}

func TestSnapshotValidate(t *testing.T) {
	allowed := []string{"claude_opus_4_5_tpm"}

	ok := Snapshot{Values: map[string]int64{"claude_opus_4_5_tpm": 1}}
	assert.NoError(t, ok.Validate(allowed))

	badName := Snapshot{Values: map[string]int64{"claude-opus": 1}}
	err := badName.Validate(nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	unexpected := Snapshot{Values: map[string]int64{"other_model_tpm": 1}}
	assert.NoError(t, unexpected.Validate(nil))
	assert.True(t, errors.Is(unexpected.Validate(allowed), apperr.ErrValidation))

	negative := Snapshot{Values: map[string]int64{"claude_opus_4_5_tpm": -1}}
	assert.Error(t, negative.Validate(allowed))
}
