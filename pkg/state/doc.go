/*
Package state holds the schema-driven normalizer and differ.

The authority speaks camelCase JSON and returns attributes the operator
never manages (identifiers, timestamps, server-assigned tags). Desired state
uses snake_case names. Each resource kind declares an explicit, versioned
Schema that maps one vocabulary onto the other:

	schema := &state.Schema{
		Kind:        types.KindCollection,
		Version:     "v1",
		Identity:    []string{"slug"},
		ServerOwned: []string{"createdAt", "instanceCount"},
		Fields: []state.Field{
			{Remote: "displayName", Local: "display_name"},
			{Remote: "adminEmails", Local: "admin_emails", Set: true, CreateOnly: true},
		},
	}

Normalize is a pure function from remote JSON to Attributes. Anything the
schema does not map is dropped; Schema.Unmapped reports such keys so that a
growing remote schema shows up in debug logs instead of in diffs. Desired
state is passed through Normalize as well, so defaults and canonical forms
apply to both sides and never produce a spurious update.

RequiresUpdate compares the canonical JSON encoding of the desired
attributes against the normalized remote attributes projected onto the
desired keys. Canonical JSON sorts map keys, so key order never matters.
*/
package state
