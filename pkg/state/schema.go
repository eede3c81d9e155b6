package state

import (
	"slices"
	"time"

	"github.com/smallstep/agentctl/pkg/types"
)

// Field maps one remote attribute to its desired-state name
type Field struct {
	// Remote is the name used by the authority (camelCase)
	Remote string
	// Local is the name used in desired state (snake_case)
	Local string
	// Fields maps the members of a nested object
	Fields []Field
	// Opaque values are free-form maps whose keys are never renamed
	Opaque bool
	// DropKeys are server-assigned keys removed from an opaque map
	DropKeys []string
	// Set marks a string list whose order and duplicates carry no meaning
	Set bool
	// Canon rewrites a value into its canonical representation
	Canon func(any) any
	// Default is substituted when the attribute is absent
	Default any
	// CreateOnly attributes are sent on create but never compared
	CreateOnly bool
}

// Schema is the explicit mapping table of one resource kind
type Schema struct {
	Kind types.ResourceKind
	// Version changes whenever Fields, Identity or ServerOwned change
	Version string
	// Identity lists the remote names of identity attributes
	Identity []string
	// ServerOwned lists remote attributes the authority maintains itself
	ServerOwned []string
	Fields      []Field
}

// Known keeps the top-level keys of data that the schema maps or lists as
// identity. It turns an arbitrary response body into partial resource data.
func (s *Schema) Known(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if slices.Contains(s.Identity, k) || s.maps(k) {
			out[k] = v
		}
	}
	return out
}

func (s *Schema) maps(key string) bool {
	for _, f := range s.Fields {
		if f.Remote == key || f.Local == key {
			return true
		}
	}
	return false
}

// Unmapped lists top-level remote keys the schema does not know about.
// A non-empty result means the authority grew its schema.
func (s *Schema) Unmapped(data map[string]any) []string {
	var unknown []string
	for k := range data {
		if slices.Contains(s.Identity, k) || slices.Contains(s.ServerOwned, k) {
			continue
		}
		if !s.maps(k) {
			unknown = append(unknown, k)
		}
	}
	slices.Sort(unknown)
	return unknown
}

// CanonDuration rewrites a duration string into time.Duration's own format,
// so "24h" and "24h0m0s" compare equal
func CanonDuration(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return v
	}
	return d.String()
}
