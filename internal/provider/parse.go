package provider

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
)

// ParseRate decodes a single upstream rate value. It reports false for
// anything that is not a positive finite JSON number.
func ParseRate(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || raw[0] == '{' || raw[0] == '[' {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	v, err := n.Float64()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// PickRates extracts the requested symbols from a raw upstream rate object.
// Upstream keys are matched case-insensitively; output keys are uppercase.
// Values that fail ParseRate are skipped.
func PickRates(raw map[string]json.RawMessage, symbols []string) RateMap {
	byUpper := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		byUpper[strings.ToUpper(k)] = v
	}
	out := make(RateMap, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(s)
		v, ok := byUpper[s]
		if !ok {
			continue
		}
		if rate, ok := ParseRate(v); ok {
			out[s] = rate
		}
	}
	return out
}
