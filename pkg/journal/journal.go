package journal

import (
	"time"

	"github.com/smallstep/agentctl/pkg/types"
)

// Entry records the outcome of one reconciliation
type Entry struct {
	ID       string             `json:"id"`
	RunID    string             `json:"run_id"`
	Kind     types.ResourceKind `json:"kind"`
	Identity string             `json:"identity"`
	State    types.State        `json:"state"`
	Action   types.Action       `json:"action,omitempty"`
	Changed  bool               `json:"changed"`
	// Attributes names what a create or update set
	Attributes []string      `json:"attributes,omitempty"`
	CheckMode  bool          `json:"check_mode,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Filter narrows a listing
type Filter struct {
	// Limit caps the number of entries; zero means no limit
	Limit int
	// Kind keeps only entries of one kind when set
	Kind types.ResourceKind
}

// Store is the run history. It is an audit trail only; reconciliation never
// reads it.
type Store interface {
	Append(entry *Entry) error
	// List returns entries newest first
	List(filter Filter) ([]*Entry, error)
	// Prune removes entries that started before the cutoff
	Prune(before time.Time) (int, error)
	Count() (int, error)
	Close() error
}
