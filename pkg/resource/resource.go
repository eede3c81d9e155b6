package resource

import (
	"fmt"

	"github.com/smallstep/agentctl/pkg/reconciler"
	"github.com/smallstep/agentctl/pkg/state"
	"github.com/smallstep/agentctl/pkg/types"
)

// Schemas lists the mapping table of every kind
var Schemas = map[types.ResourceKind]*state.Schema{
	types.KindCollection: CollectionSchema,
	types.KindInstance:   InstanceSchema,
	types.KindWorkload:   WorkloadSchema,
}

// ForIdentity builds a resource that carries only its identity, for
// read-only lookups and deletions
func ForIdentity(kind types.ResourceKind, args ...string) (reconciler.Resource, error) {
	want := map[types.ResourceKind]int{
		types.KindCollection: 1,
		types.KindInstance:   2,
		types.KindWorkload:   2,
	}[kind]
	if want == 0 {
		return nil, fmt.Errorf("unsupported resource kind: %q", kind)
	}
	if len(args) != want {
		return nil, fmt.Errorf("%s takes %d identity arguments, got %d", kind, want, len(args))
	}

	switch kind {
	case types.KindCollection:
		return &Collection{Spec: types.CollectionSpec{Slug: args[0]}}, nil
	case types.KindInstance:
		return &Instance{Spec: types.InstanceSpec{CollectionSlug: args[0], InstanceID: args[1]}}, nil
	default:
		return &Workload{Spec: types.WorkloadSpec{CollectionSlug: args[0], WorkloadSlug: args[1]}}, nil
	}
}
