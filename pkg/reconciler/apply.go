package reconciler

import (
	"context"
	"fmt"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/state"
	"github.com/smallstep/agentctl/pkg/types"
)

// Apply issues exactly one mutating call for op. The call is detached from
// caller cancellation: once a mutation is sent it runs to completion, bounded
// only by the authority client's timeout. It is never retried.
func Apply(ctx context.Context, api authority.API, op types.Operation, res Resource, desired state.Attributes, current types.Snapshot) error {
	ctx = context.WithoutCancel(ctx)

	switch op {
	case types.OpCreate:
		return res.Create(ctx, api, desired)
	case types.OpUpdate:
		return res.Update(ctx, api, desired, current)
	case types.OpDelete:
		return res.Delete(ctx, api)
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}
