package types

import (
	"fmt"
	"strings"
)

// ResourceKind identifies which kind of remote resource is being reconciled
type ResourceKind string

const (
	KindCollection ResourceKind = "Collection"
	KindInstance   ResourceKind = "Instance"
	KindWorkload   ResourceKind = "Workload"
)

// Kinds lists every supported resource kind
var Kinds = []ResourceKind{KindCollection, KindInstance, KindWorkload}

// ParseKind resolves a kind name case-insensitively
func ParseKind(s string) (ResourceKind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported resource kind: %q", s)
}

// ResultKey is the name under which the final resource is reported
func (k ResourceKind) ResultKey() string {
	return "smallstep_" + strings.ToLower(string(k))
}

// State selects the ensure-present or ensure-absent path
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// ParseState parses a state flag; the empty string means present
func ParseState(s string) (State, error) {
	switch State(strings.ToLower(s)) {
	case "", StatePresent:
		return StatePresent, nil
	case StateAbsent:
		return StateAbsent, nil
	default:
		return "", fmt.Errorf("state must be 'present' or 'absent', got %q", s)
	}
}

// Identity is the natural key of a resource. Which fields are set depends on
// the kind: Collection uses CollectionSlug, Instance adds InstanceID and
// Workload adds WorkloadSlug.
type Identity struct {
	CollectionSlug string `json:"collection_slug,omitempty" yaml:"collection_slug,omitempty"`
	InstanceID     string `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`
	WorkloadSlug   string `json:"workload_slug,omitempty" yaml:"workload_slug,omitempty"`
}

// String renders the identity as a slash-separated path
func (id Identity) String() string {
	parts := []string{id.CollectionSlug}
	if id.InstanceID != "" {
		parts = append(parts, id.InstanceID)
	}
	if id.WorkloadSlug != "" {
		parts = append(parts, id.WorkloadSlug)
	}
	return strings.Join(parts, "/")
}

// Fields returns the identity as attribute name/value pairs
func (id Identity) Fields() map[string]any {
	fields := map[string]any{"collection_slug": id.CollectionSlug}
	if id.InstanceID != "" {
		fields["instance_id"] = id.InstanceID
	}
	if id.WorkloadSlug != "" {
		fields["workload_slug"] = id.WorkloadSlug
	}
	return fields
}

// Operation tags the single mutating call issued by the change applier
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Action is the decision taken by a reconciliation
type Action string

const (
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionNoOp          Action = "noop"
	ActionAlreadyAbsent Action = "already-absent"
)

// Mutating reports whether the action changes the remote system
func (a Action) Mutating() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

// Operation maps a mutating action to its applier operation
func (a Action) Operation() (Operation, bool) {
	switch a {
	case ActionCreate:
		return OpCreate, true
	case ActionUpdate:
		return OpUpdate, true
	case ActionDelete:
		return OpDelete, true
	default:
		return "", false
	}
}

// Snapshot is the remote representation of a resource. The zero value is
// the absent snapshot.
type Snapshot struct {
	Present bool
	// Partial is set when the authority answered with a conflict and Data
	// holds only what the conflict response carried
	Partial bool
	Data    map[string]any
}

// Absent is the snapshot of a resource that does not exist remotely
var Absent = Snapshot{}

// PresentSnapshot wraps remote data as a present snapshot
func PresentSnapshot(data map[string]any) Snapshot {
	if data == nil {
		data = map[string]any{}
	}
	return Snapshot{Present: true, Data: data}
}

// Outcome is the result of one reconciliation. It is constructed once and
// returned by value.
type Outcome struct {
	Changed bool
	Action  Action
	// CheckMode is set when the decision was computed without mutating
	CheckMode bool
	// Diff is a human-readable rendering of the attributes a create or
	// update sets; empty for every other action
	Diff string
	// Attributes names the top-level attributes a create or update sets
	Attributes []string
	Final      Snapshot
}
