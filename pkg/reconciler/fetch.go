package reconciler

import (
	"context"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/types"
)

// Fetch reads the current remote state of a resource. A 404 is the absent
// snapshot and a 409 is a partial present snapshot holding the attributes of
// the conflict response the schema knows; error envelope keys are dropped.
// Any other error is returned unchanged.
func Fetch(ctx context.Context, api authority.API, res Resource) (types.Snapshot, error) {
	data, err := res.Get(ctx, api)
	switch {
	case err == nil:
		return types.PresentSnapshot(data), nil
	case authority.IsNotFound(err):
		return types.Absent, nil
	case authority.IsConflict(err):
		aerr, _ := authority.AsError(err)
		snap := types.PresentSnapshot(res.Schema().Known(aerr.Body))
		snap.Partial = true
		return snap, nil
	default:
		return types.Snapshot{}, err
	}
}
