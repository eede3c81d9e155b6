package resource

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/reconciler"
	"github.com/smallstep/agentctl/pkg/state"
	"github.com/smallstep/agentctl/pkg/types"
)

// CollectionSchema maps the device collection representation. Only the
// display name can change after creation.
var CollectionSchema = &state.Schema{
	Kind:        types.KindCollection,
	Version:     "v1",
	Identity:    []string{"slug"},
	ServerOwned: []string{"id", "instanceCount", "createdAt", "updatedAt"},
	Fields: []state.Field{
		{Remote: "displayName", Local: "display_name"},
		{Remote: "adminEmails", Local: "admin_emails", Set: true, CreateOnly: true},
		{Remote: "deviceType", Local: "device_type", CreateOnly: true},
		{Remote: "deviceTypeConfiguration", Local: "device_type_configuration", CreateOnly: true},
	},
}

// deviceTypeFields maps each device type configuration to the authority's
// vocabulary
var deviceTypeFields = map[string][]state.Field{
	"aws_vm": {
		{Remote: "accounts", Local: "accounts"},
		{Remote: "disableCustomSANs", Local: "disable_custom_sans"},
	},
	"azure_vm": {
		{Remote: "tenantID", Local: "tenant_id"},
		{Remote: "resourceGroups", Local: "resource_groups"},
		{Remote: "audience", Local: "audience"},
		{Remote: "disableCustomSANs", Local: "disable_custom_sans"},
	},
	"gcp_vm": {
		{Remote: "projectIDs", Local: "project_ids"},
		{Remote: "serviceAccounts", Local: "service_accounts"},
		{Remote: "disableCustomSANs", Local: "disable_custom_sans"},
	},
	"tpm": {
		{Remote: "attestorRoots", Local: "attestor_roots"},
		{Remote: "attestorIntermediates", Local: "attestor_intermediates"},
		{Remote: "forceCN", Local: "force_cn"},
		{Remote: "requireEAB", Local: "require_eab"},
	},
}

// Collection is a device collection
type Collection struct {
	Spec types.CollectionSpec
}

var _ reconciler.Resource = (*Collection)(nil)

func (c *Collection) Kind() types.ResourceKind { return types.KindCollection }

func (c *Collection) Identity() types.Identity { return c.Spec.Identity() }

func (c *Collection) Schema() *state.Schema { return CollectionSchema }

func (c *Collection) Validate(st types.State) error { return c.Spec.Validate(st) }

func (c *Collection) Desired() (state.Attributes, error) { return state.FromSpec(c.Spec) }

func (c *Collection) path() string {
	return authority.Path("device-collections", c.Spec.Slug)
}

func (c *Collection) Get(ctx context.Context, api authority.API) (map[string]any, error) {
	return api.Get(ctx, c.path())
}

// Create sends the full collection. The device type key is spelled with
// dashes remotely (aws_vm becomes aws-vm) and its configuration travels
// separately in camelCase.
func (c *Collection) Create(ctx context.Context, api authority.API, desired state.Attributes) error {
	body := map[string]any{
		"slug":        c.Spec.Slug,
		"displayName": desired["display_name"],
		"adminEmails": c.Spec.AdminEmails,
	}

	name, _ := c.Spec.DeviceType.Selected()
	if name != "" {
		config, err := c.deviceTypeConfiguration(name)
		if err != nil {
			return err
		}
		body["deviceType"] = strings.ReplaceAll(name, "_", "-")
		body["deviceTypeConfiguration"] = config
	}

	if _, err := api.Post(ctx, authority.Path("device-collections"), body); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.Spec.Slug, err)
	}
	return nil
}

func (c *Collection) deviceTypeConfiguration(name string) (map[string]any, error) {
	attrs, err := state.FromSpec(c.Spec.DeviceType)
	if err != nil {
		return nil, err
	}
	config, _ := attrs[name].(map[string]any)
	schema := &state.Schema{Kind: types.KindCollection, Fields: deviceTypeFields[name]}
	return state.Encode(schema, config, true), nil
}

// Update replaces the collection with its current representation carrying
// the new display name. A partial snapshot is never used as the base of the
// replacement; the collection is read again first.
func (c *Collection) Update(ctx context.Context, api authority.API, desired state.Attributes, current types.Snapshot) error {
	base := current.Data
	if current.Partial {
		fresh, err := api.Get(ctx, c.path())
		if err != nil {
			return fmt.Errorf("failed to re-read collection %s before replacing it: %w", c.Spec.Slug, err)
		}
		base = fresh
	}

	body := make(map[string]any, len(base)+1)
	maps.Copy(body, base)
	body["displayName"] = desired["display_name"]

	if _, err := api.Put(ctx, c.path(), body); err != nil {
		return fmt.Errorf("failed to update collection %s: %w", c.Spec.Slug, err)
	}
	return nil
}

func (c *Collection) Delete(ctx context.Context, api authority.API) error {
	if err := api.Delete(ctx, c.path()); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", c.Spec.Slug, err)
	}
	return nil
}
