package resource

import (
	"context"
	"fmt"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/reconciler"
	"github.com/smallstep/agentctl/pkg/state"
	"github.com/smallstep/agentctl/pkg/types"
)

// HostIDKey is the metadata key the authority assigns to every enrolled
// host. It is never part of the declared metadata.
const HostIDKey = "smallstep:host:id"

// InstanceSchema maps a collection instance. Its only attribute is the
// free-form metadata map, stored remotely under "data".
var InstanceSchema = &state.Schema{
	Kind:        types.KindInstance,
	Version:     "v1",
	Identity:    []string{"id"},
	ServerOwned: []string{"collectionSlug", "createdAt", "updatedAt"},
	Fields: []state.Field{
		{
			Remote:   "data",
			Local:    "metadata",
			Opaque:   true,
			DropKeys: []string{HostIDKey},
			Default:  map[string]any{},
		},
	},
}

// Instance is one device in a collection
type Instance struct {
	Spec types.InstanceSpec
}

var _ reconciler.Resource = (*Instance)(nil)

func (i *Instance) Kind() types.ResourceKind { return types.KindInstance }

func (i *Instance) Identity() types.Identity { return i.Spec.Identity() }

func (i *Instance) Schema() *state.Schema { return InstanceSchema }

func (i *Instance) Validate(st types.State) error { return i.Spec.Validate(st) }

func (i *Instance) Desired() (state.Attributes, error) { return state.FromSpec(i.Spec) }

func (i *Instance) path() string {
	return authority.Path("device-collections", i.Spec.CollectionSlug, "instances", i.Spec.InstanceID)
}

func (i *Instance) Get(ctx context.Context, api authority.API) (map[string]any, error) {
	return api.Get(ctx, i.path())
}

// Create and Update are the same idempotent PUT of the metadata
func (i *Instance) Create(ctx context.Context, api authority.API, desired state.Attributes) error {
	if err := i.put(ctx, api, desired); err != nil {
		return fmt.Errorf("failed to create instance %s: %w", i.Identity(), err)
	}
	return nil
}

func (i *Instance) Update(ctx context.Context, api authority.API, desired state.Attributes, _ types.Snapshot) error {
	if err := i.put(ctx, api, desired); err != nil {
		return fmt.Errorf("failed to update instance %s: %w", i.Identity(), err)
	}
	return nil
}

func (i *Instance) put(ctx context.Context, api authority.API, desired state.Attributes) error {
	body := state.Encode(InstanceSchema, desired, true)
	if _, ok := body["data"]; !ok {
		body["data"] = map[string]any{}
	}
	_, err := api.Put(ctx, i.path(), body)
	return err
}

func (i *Instance) Delete(ctx context.Context, api authority.API) error {
	if err := api.Delete(ctx, i.path()); err != nil {
		return fmt.Errorf("failed to delete instance %s: %w", i.Identity(), err)
	}
	return nil
}
