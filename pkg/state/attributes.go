package state

import (
	"encoding/json"
	"fmt"
)

// Attributes maps attribute names to JSON-compatible values (string,
// float64, bool, []any, map[string]any). Both desired state and normalized
// remote state use it so they can be compared directly.
type Attributes map[string]any

// FromSpec converts a typed spec into attributes with every null value
// stripped, so an unspecified field is absent rather than null
func FromSpec(spec any) (Attributes, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode spec: %w", err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode spec: %w", err)
	}
	stripped, _ := StripNulls(attrs).(map[string]any)
	return Attributes(stripped), nil
}

// StripNulls removes nil values from maps, recursively
func StripNulls(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if item == nil {
				continue
			}
			out[k] = StripNulls(item)
		}
		return out
	case Attributes:
		return StripNulls(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = StripNulls(item)
		}
		return out
	default:
		return v
	}
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case Attributes:
		return deepCopy(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out
	default:
		return v
	}
}

// asMap accepts both plain maps and Attributes
func asMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case Attributes:
		return map[string]any(val), true
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = item
		}
		return out, true
	default:
		return nil, false
	}
}
