package state

import (
	"fmt"
	"slices"
)

// Normalize converts a remote representation into the desired-state
// vocabulary of the schema. Remote names are mapped to local names,
// create-only, identity, server-owned and unmapped attributes are dropped,
// defaults are filled in and values are put in canonical form.
//
// Normalize is pure and idempotent: keys are accepted under either their
// remote or their local name, so normalizing an already normalized value
// (or a desired state) returns it unchanged.
func Normalize(s *Schema, data map[string]any) Attributes {
	if data == nil {
		data = map[string]any{}
	}
	return Attributes(normalizeObject(s.Fields, data, false))
}

// NormalizeDesired normalizes a desired state. Unlike Normalize, top-level
// defaults are not filled in: an attribute the operator left out stays out,
// so it is never compared and never overwritten. Defaults inside an object
// the operator did specify still apply.
func NormalizeDesired(s *Schema, desired Attributes) Attributes {
	out := Normalize(s, desired)
	for _, f := range s.Fields {
		if _, ok := lookup(desired, f); !ok {
			delete(out, f.Local)
		}
	}
	return out
}

func normalizeObject(fields []Field, data map[string]any, nested bool) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.CreateOnly && !nested {
			continue
		}
		v, ok := lookup(data, f)
		if !ok {
			if f.Default != nil {
				out[f.Local] = normalizeValue(f, deepCopy(f.Default))
			}
			continue
		}
		out[f.Local] = normalizeValue(f, v)
	}
	return out
}

func lookup(data map[string]any, f Field) (any, bool) {
	if v, ok := data[f.Remote]; ok && v != nil {
		return v, true
	}
	if v, ok := data[f.Local]; ok && v != nil {
		return v, true
	}
	return nil, false
}

func normalizeValue(f Field, v any) any {
	switch {
	case len(f.Fields) > 0:
		if m, ok := asMap(v); ok {
			v = normalizeObject(f.Fields, m, true)
		} else {
			v = deepCopy(v)
		}
	case f.Opaque:
		if m, ok := asMap(v); ok {
			out := make(map[string]any, len(m))
			for k, item := range m {
				if slices.Contains(f.DropKeys, k) || item == nil {
					continue
				}
				out[k] = StripNulls(deepCopy(item))
			}
			v = out
		} else {
			v = deepCopy(v)
		}
	case f.Set:
		v = sortedSet(v)
	default:
		v = StripNulls(deepCopy(v))
	}
	if f.Canon != nil {
		v = f.Canon(v)
	}
	return v
}

// sortedSet sorts and deduplicates a string list. Lists holding anything
// other than strings are returned as copies.
func sortedSet(v any) any {
	list, ok := deepCopy(v).([]any)
	if !ok {
		return v
	}
	strs := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return list
		}
		strs = append(strs, s)
	}
	slices.Sort(strs)
	strs = slices.Compact(strs)
	out := make([]any, len(strs))
	for i, s := range strs {
		out[i] = s
	}
	return out
}

// Encode converts desired-state attributes back into the authority's
// vocabulary. Create-only attributes are included only when requested.
func Encode(s *Schema, attrs Attributes, includeCreateOnly bool) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, f := range s.Fields {
		if f.CreateOnly && !includeCreateOnly {
			continue
		}
		v, ok := attrs[f.Local]
		if !ok || v == nil {
			continue
		}
		out[f.Remote] = encodeValue(f, v)
	}
	return out
}

func encodeValue(f Field, v any) any {
	if len(f.Fields) == 0 {
		return deepCopy(v)
	}
	m, ok := asMap(v)
	if !ok {
		return deepCopy(v)
	}
	out := make(map[string]any, len(m))
	for _, nf := range f.Fields {
		item, ok := m[nf.Local]
		if !ok || item == nil {
			continue
		}
		out[nf.Remote] = encodeValue(nf, item)
	}
	return out
}

// Check verifies that a schema is internally consistent: no local or remote
// name is mapped twice and no mapped field is also an identity or
// server-owned attribute.
func (s *Schema) Check() error {
	locals := map[string]bool{}
	remotes := map[string]bool{}
	for _, f := range s.Fields {
		if locals[f.Local] {
			return fmt.Errorf("%s schema %s maps %q twice", s.Kind, s.Version, f.Local)
		}
		if remotes[f.Remote] {
			return fmt.Errorf("%s schema %s maps remote %q twice", s.Kind, s.Version, f.Remote)
		}
		if slices.Contains(s.Identity, f.Remote) || slices.Contains(s.ServerOwned, f.Remote) {
			return fmt.Errorf("%s schema %s maps reserved attribute %q", s.Kind, s.Version, f.Remote)
		}
		locals[f.Local] = true
		remotes[f.Remote] = true
	}
	return nil
}
