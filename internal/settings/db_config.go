package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot holds the in-memory DB setting values.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

// values stores the latest snapshot atomically.
type values struct {
	current atomic.Value // stores snapshot
}

func (v *values) store(updatedAt time.Time, in map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(in))
	for k, raw := range in {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next[key] = append(json.RawMessage(nil), raw...)
	}
	v.current.Store(snapshot{updatedAt: updatedAt.UTC(), values: next})
}

func (v *values) load() snapshot {
	s, ok := v.current.Load().(snapshot)
	if !ok || s.values == nil {
		return snapshot{values: map[string]json.RawMessage{}}
	}
	return s
}

func (v *values) raw(key string) (json.RawMessage, bool) {
	val, ok := v.load().values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), val...), true
}

// parseInt accepts a JSON number, a numeric string, or {"value": ...}.
func parseInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if errUnmarshal := json.Unmarshal(raw, &f); errUnmarshal == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(s))
		if errParse == nil {
			return parsed, true
		}
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
		return parseInt(wrapper.Value)
	}
	return 0, false
}
