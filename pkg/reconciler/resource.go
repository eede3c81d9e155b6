package reconciler

import (
	"context"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/state"
	"github.com/smallstep/agentctl/pkg/types"
)

// Resource is one desired resource of a known kind. The reconciler drives
// the generic fetch, diff and apply cycle; a Resource supplies the kind's
// schema, validation and the concrete authority calls.
type Resource interface {
	Kind() types.ResourceKind
	Identity() types.Identity
	Schema() *state.Schema

	// Validate checks the fields required for the requested state
	Validate(st types.State) error
	// Desired returns the declared attributes with nulls stripped
	Desired() (state.Attributes, error)

	Get(ctx context.Context, api authority.API) (map[string]any, error)
	Create(ctx context.Context, api authority.API, desired state.Attributes) error
	Update(ctx context.Context, api authority.API, desired state.Attributes, current types.Snapshot) error
	Delete(ctx context.Context, api authority.API) error
}
