package resource

import (
	"context"
	"fmt"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/reconciler"
	"github.com/smallstep/agentctl/pkg/state"
	"github.com/smallstep/agentctl/pkg/types"
)

var hookFields = []state.Field{
	{Remote: "shell", Local: "shell"},
	{Remote: "before", Local: "before"},
	{Remote: "after", Local: "after"},
	{Remote: "onError", Local: "on_error"},
}

// WorkloadSchema maps a workload. A workload without a certificate policy
// gets the authority's default X509 policy with a 24h lifetime.
var WorkloadSchema = &state.Schema{
	Kind:        types.KindWorkload,
	Version:     "v1",
	Identity:    []string{"slug"},
	ServerOwned: []string{"id", "collectionSlug", "createdAt", "updatedAt"},
	Fields: []state.Field{
		{Remote: "displayName", Local: "display_name"},
		{Remote: "workloadType", Local: "workload_type"},
		{Remote: "adminEmails", Local: "admin_emails", Set: true, CreateOnly: true},
		{
			Remote:  "certificateInfo",
			Local:   "certificate_info",
			Default: map[string]any{"type": "X509", "duration": "24h0m0s"},
			Fields: []state.Field{
				{Remote: "type", Local: "type"},
				{Remote: "duration", Local: "duration", Canon: state.CanonDuration},
				{Remote: "crtFile", Local: "crt_file"},
				{Remote: "keyFile", Local: "key_file"},
				{Remote: "rootFile", Local: "root_file"},
				{Remote: "uid", Local: "uid"},
				{Remote: "gid", Local: "gid"},
				{Remote: "mode", Local: "mode"},
			},
		},
		{
			Remote: "keyInfo",
			Local:  "key_info",
			Fields: []state.Field{
				{Remote: "type", Local: "type"},
				{Remote: "format", Local: "format", Default: "DEFAULT"},
				{Remote: "pubFile", Local: "pub_file"},
			},
		},
		{
			Remote: "reloadInfo",
			Local:  "reload_info",
			Fields: []state.Field{
				{Remote: "method", Local: "method"},
				{Remote: "pidFile", Local: "pid_file"},
				{Remote: "signal", Local: "signal"},
				{Remote: "unitName", Local: "unit_name"},
			},
		},
		{
			Remote: "hooks",
			Local:  "hooks",
			Fields: []state.Field{
				{Remote: "sign", Local: "sign", Fields: hookFields},
				{Remote: "renew", Local: "renew", Fields: hookFields},
			},
		},
		{Remote: "staticSANs", Local: "static_sans", Set: true},
		{Remote: "deviceMetadataKeySANs", Local: "device_metadata_key_sans", Set: true},
	},
}

// Workload is a certificate-issuing policy in a collection
type Workload struct {
	Spec types.WorkloadSpec
}

var _ reconciler.Resource = (*Workload)(nil)

func (w *Workload) Kind() types.ResourceKind { return types.KindWorkload }

func (w *Workload) Identity() types.Identity { return w.Spec.Identity() }

func (w *Workload) Schema() *state.Schema { return WorkloadSchema }

func (w *Workload) Validate(st types.State) error { return w.Spec.Validate(st) }

func (w *Workload) Desired() (state.Attributes, error) { return state.FromSpec(w.Spec) }

func (w *Workload) path() string {
	return authority.Path("device-collections", w.Spec.CollectionSlug, "workloads", w.Spec.WorkloadSlug)
}

func (w *Workload) Get(ctx context.Context, api authority.API) (map[string]any, error) {
	return api.Get(ctx, w.path())
}

func (w *Workload) Create(ctx context.Context, api authority.API, desired state.Attributes) error {
	body := state.Encode(WorkloadSchema, desired, true)
	body["slug"] = w.Spec.WorkloadSlug
	if len(w.Spec.AdminEmails) > 0 {
		body["adminEmails"] = w.Spec.AdminEmails
	}

	path := authority.Path("device-collections", w.Spec.CollectionSlug, "workloads")
	if _, err := api.Post(ctx, path, body); err != nil {
		return fmt.Errorf("failed to create workload %s: %w", w.Identity(), err)
	}
	return nil
}

// Update sends the desired policy only; admin emails are fixed at creation
func (w *Workload) Update(ctx context.Context, api authority.API, desired state.Attributes, _ types.Snapshot) error {
	body := state.Encode(WorkloadSchema, desired, false)
	if _, err := api.Put(ctx, w.path(), body); err != nil {
		return fmt.Errorf("failed to update workload %s: %w", w.Identity(), err)
	}
	return nil
}

func (w *Workload) Delete(ctx context.Context, api authority.API) error {
	if err := api.Delete(ctx, w.path()); err != nil {
		return fmt.Errorf("failed to delete workload %s: %w", w.Identity(), err)
	}
	return nil
}
