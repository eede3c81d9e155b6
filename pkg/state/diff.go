package state

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/go-cmp/cmp"
)

// Canonical renders attributes as JSON with keys sorted at every level.
// Two attribute sets are equal exactly when their canonical forms are.
func Canonical(a Attributes) string {
	if a == nil {
		a = Attributes{}
	}
	data, err := json.Marshal(map[string]any(a))
	if err != nil {
		// only reachable with values that did not come from JSON
		return fmt.Sprintf("%#v", map[string]any(a))
	}
	return string(data)
}

// Project restricts current to the top-level keys present in desired.
// Attributes the operator left out are never compared, so absence in
// desired never causes a field to be removed.
func Project(current, desired Attributes) Attributes {
	out := make(Attributes, len(desired))
	for k := range desired {
		if v, ok := current[k]; ok {
			out[k] = v
		}
	}
	return out
}

// RequiresUpdate reports whether the normalized remote state differs from
// the desired state on any attribute the operator specified. Both arguments
// must already be normalized through the same schema.
func RequiresUpdate(desired, current Attributes) bool {
	return Canonical(desired) != Canonical(Project(current, desired))
}

// Changed lists the desired top-level keys whose value differs remotely
func Changed(desired, current Attributes) []string {
	var keys []string
	for _, k := range sortedKeys(desired) {
		if Canonical(Attributes{k: desired[k]}) != Canonical(Attributes{k: current[k]}) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Report returns a human-readable diff from current to desired, restricted
// to the attributes the operator specified. An empty string means no change.
func Report(desired, current Attributes) string {
	if !RequiresUpdate(desired, current) {
		return ""
	}
	return cmp.Diff(map[string]any(Project(current, desired)), map[string]any(desired))
}

func sortedKeys(a Attributes) []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
