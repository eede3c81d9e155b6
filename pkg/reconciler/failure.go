package reconciler

import (
	"fmt"
	"strings"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/types"
)

// Phase is a state of the reconciliation state machine
type Phase string

const (
	PhaseStart         Phase = "start"
	PhaseFetched       Phase = "fetched"
	PhaseCreate        Phase = "create"
	PhaseUpdate        Phase = "update"
	PhaseNoOp          Phase = "noop"
	PhaseAlreadyAbsent Phase = "already-absent"
	PhaseDelete        Phase = "delete"
	PhaseVerified      Phase = "verified"
	PhaseFailed        Phase = "failed"
)

func phaseFor(action types.Action) Phase {
	switch action {
	case types.ActionCreate:
		return PhaseCreate
	case types.ActionUpdate:
		return PhaseUpdate
	case types.ActionDelete:
		return PhaseDelete
	case types.ActionAlreadyAbsent:
		return PhaseAlreadyAbsent
	default:
		return PhaseNoOp
	}
}

// Failure ends a reconciliation. It records where the state machine
// stopped and the parameters that were in effect.
type Failure struct {
	Kind     types.ResourceKind
	Identity types.Identity
	// Phase is the phase that was running when the error occurred
	Phase Phase
	// Op is set when the change applier issued the failing call
	Op     types.Operation
	Params map[string]any
	Err    error
}

func (f *Failure) Error() string {
	what := string(f.Phase)
	if f.Op != "" {
		what = string(f.Op)
	}
	return fmt.Sprintf("%s %s: %s failed: %v", f.Kind, f.Identity, what, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Authority returns the authority error behind the failure, if any
func (f *Failure) Authority() (*authority.Error, bool) {
	return authority.AsError(f.Err)
}

const redacted = "********"

var sensitiveKeys = []string{"token", "secret", "password", "private_key"}

// redact copies params, masking values whose key looks sensitive
func redact(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if isSensitive(k) {
			out[k] = redacted
			continue
		}
		if m, ok := v.(map[string]any); ok {
			out[k] = redact(m)
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
