package reconciler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/authority/authoritytest"
	"github.com/smallstep/agentctl/pkg/reconciler"
	"github.com/smallstep/agentctl/pkg/resource"
	"github.com/smallstep/agentctl/pkg/state"
	"github.com/smallstep/agentctl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	collectionPath = "/device-collections/aws-nginx-demo"
	instancePath   = "/device-collections/aws-nginx-demo/instances/i-0d69ab001748abd98"
	workloadPath   = "/device-collections/hotdog-production/workloads/hotdog-nginx-production"
)

func awsCollection() *resource.Collection {
	return &resource.Collection{Spec: types.CollectionSpec{
		Slug:        "aws-nginx-demo",
		DisplayName: "AWS NGINX Demo",
		AdminEmails: []string{"admin@example.com"},
		DeviceType: &types.DeviceType{AWSVM: &types.AWSVM{
			Accounts: []string{"123456789011", "123456789012"},
		}},
	}}
}

func nginxWorkload() *resource.Workload {
	return &resource.Workload{Spec: types.WorkloadSpec{
		CollectionSlug: "hotdog-production",
		WorkloadSlug:   "hotdog-nginx-production",
		DisplayName:    "Hotdog Nginx",
		WorkloadType:   "nginx",
		AdminEmails:    []string{"admin@example.com"},
		StaticSANs:     []string{"hotdog.example.com"},
	}}
}

// serverOwned mimics the authority adding bookkeeping to stored objects
func serverOwned(path string, obj map[string]any) map[string]any {
	obj["createdAt"] = "2024-05-01T12:00:00Z"
	if data, ok := obj["data"].(map[string]any); ok {
		data[resource.HostIDKey] = "6f1d0a52"
	}
	if ci, ok := obj["certificateInfo"]; !ok || ci == nil {
		if _, isWorkload := obj["workloadType"]; isWorkload {
			obj["certificateInfo"] = map[string]any{"type": "X509", "duration": "24h0m0s"}
		}
	}
	return obj
}

func newFake() *authoritytest.Fake {
	fake := authoritytest.New()
	fake.Decorate = serverOwned
	return fake
}

// Scenario 1 and 2: create, then converge without change
func TestCollectionCreateThenNoOp(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	r := reconciler.NewReconciler(fake)

	outcome, err := r.Reconcile(ctx, awsCollection(), types.StatePresent)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, types.ActionCreate, outcome.Action)
	assert.True(t, outcome.Final.Present)
	assert.Equal(t, "AWS NGINX Demo", outcome.Final.Data["displayName"])
	assert.NotEmpty(t, outcome.Diff)

	mutations := fake.Mutations()
	require.Len(t, mutations, 1)
	assert.Equal(t, http.MethodPost, mutations[0].Method)

	fake.Reset()
	outcome, err = r.Reconcile(ctx, awsCollection(), types.StatePresent)
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, types.ActionNoOp, outcome.Action)
	assert.Empty(t, outcome.Diff)
	assert.Empty(t, fake.Mutations())
}

func TestCollectionDisplayNameUpdate(t *testing.T) {
	fake := newFake()
	fake.Seed(collectionPath, map[string]any{
		"slug":          "aws-nginx-demo",
		"displayName":   "Old Name",
		"deviceType":    "aws-vm",
		"instanceCount": 3,
	})

	outcome, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), awsCollection(), types.StatePresent)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, types.ActionUpdate, outcome.Action)

	mutations := fake.Mutations()
	require.Len(t, mutations, 1)
	assert.Equal(t, http.MethodPut, mutations[0].Method)
	assert.Equal(t, "AWS NGINX Demo", mutations[0].Body["displayName"])
	assert.Equal(t, 3.0, mutations[0].Body["instanceCount"])
	assert.Equal(t, "AWS NGINX Demo", outcome.Final.Data["displayName"])
}

// Scenario 3
func TestInstanceMetadataUpdate(t *testing.T) {
	fake := newFake()
	fake.Seed(instancePath, map[string]any{
		"id":   "i-0d69ab001748abd98",
		"data": map[string]any{"role": "webserver", resource.HostIDKey: "6f1d0a52"},
	})
	inst := &resource.Instance{Spec: types.InstanceSpec{
		CollectionSlug: "aws-nginx-demo",
		InstanceID:     "i-0d69ab001748abd98",
		Metadata:       map[string]string{"role": "webserver", "env": "prod"},
	}}

	outcome, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), inst, types.StatePresent)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, types.ActionUpdate, outcome.Action)

	mutations := fake.Mutations()
	require.Len(t, mutations, 1)
	assert.Equal(t, map[string]any{"data": map[string]any{"role": "webserver", "env": "prod"}}, mutations[0].Body)

	data := outcome.Final.Data["data"].(map[string]any)
	assert.Equal(t, "prod", data["env"])
	assert.Equal(t, "6f1d0a52", data[resource.HostIDKey])
}

func TestInstanceHostIDNeverDiffs(t *testing.T) {
	fake := newFake()
	fake.Seed(instancePath, map[string]any{
		"id":   "i-0d69ab001748abd98",
		"data": map[string]any{"role": "webserver", resource.HostIDKey: "6f1d0a52"},
	})
	inst := &resource.Instance{Spec: types.InstanceSpec{
		CollectionSlug: "aws-nginx-demo",
		InstanceID:     "i-0d69ab001748abd98",
		Metadata:       map[string]string{"role": "webserver"},
	}}

	outcome, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), inst, types.StatePresent)
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Empty(t, fake.Mutations())
}

func TestInstanceOmittedMetadataKeepsRemote(t *testing.T) {
	fake := newFake()
	fake.Seed(instancePath, map[string]any{
		"id":   "i-0d69ab001748abd98",
		"data": map[string]any{"role": "webserver", resource.HostIDKey: "6f1d0a52"},
	})
	inst := &resource.Instance{Spec: types.InstanceSpec{
		CollectionSlug: "aws-nginx-demo",
		InstanceID:     "i-0d69ab001748abd98",
	}}

	outcome, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), inst, types.StatePresent)
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, types.ActionNoOp, outcome.Action)
	assert.Empty(t, fake.Mutations())

	stored, _ := fake.Object(instancePath)
	assert.Equal(t, "webserver", stored["data"].(map[string]any)["role"])
}

// Scenario 4
func TestAbsentOnAbsentIsNoOp(t *testing.T) {
	fake := newFake()
	w := &resource.Workload{Spec: types.WorkloadSpec{
		CollectionSlug: "hotdog-production",
		WorkloadSlug:   "hotdog-nginx-production",
	}}

	outcome, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), w, types.StateAbsent)
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, types.ActionAlreadyAbsent, outcome.Action)
	assert.False(t, outcome.Final.Present)
	assert.Empty(t, fake.Mutations())
}

func TestDeletePresent(t *testing.T) {
	fake := newFake()
	fake.Seed(workloadPath, map[string]any{"slug": "hotdog-nginx-production", "displayName": "Hotdog Nginx"})

	outcome, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), nginxWorkload(), types.StateAbsent)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, types.ActionDelete, outcome.Action)
	assert.False(t, outcome.Final.Present)

	mutations := fake.Mutations()
	require.Len(t, mutations, 1)
	assert.Equal(t, http.MethodDelete, mutations[0].Method)
	assert.Equal(t, workloadPath, mutations[0].Path)
}

// Scenario 5
func TestAuthorityFailureOnGet(t *testing.T) {
	fake := newFake()
	fake.Fail(http.MethodGet, workloadPath, &authority.Error{
		StatusCode: http.StatusInternalServerError,
		Message:    "upstream unavailable",
		Headers:    map[string]string{"X-Request-Id": "req-1"},
	})

	_, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), nginxWorkload(), types.StatePresent)
	require.Error(t, err)

	var failure *reconciler.Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, reconciler.PhaseStart, failure.Phase)
	assert.Equal(t, types.KindWorkload, failure.Kind)
	assert.Equal(t, "hotdog-nginx-production", failure.Params["workload_slug"])
	assert.Equal(t, "Hotdog Nginx", failure.Params["display_name"])

	aerr, ok := failure.Authority()
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, aerr.StatusCode)
	assert.Equal(t, "upstream unavailable", aerr.Message)
	assert.Equal(t, "req-1", aerr.Headers["X-Request-Id"])

	assert.Empty(t, fake.Mutations())
}

func TestAuthorityFailureOnCreate(t *testing.T) {
	fake := newFake()
	fake.Fail(http.MethodPost, "/device-collections/hotdog-production/workloads", &authority.Error{
		StatusCode: http.StatusForbidden,
		Message:    "forbidden",
	})

	_, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), nginxWorkload(), types.StatePresent)
	var failure *reconciler.Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, reconciler.PhaseCreate, failure.Phase)
	assert.Equal(t, types.OpCreate, failure.Op)
	assert.Len(t, fake.Mutations(), 1)
}

func TestRefetchFailure(t *testing.T) {
	fake := authoritytest.New()
	fake.Seed(workloadPath, map[string]any{"slug": "hotdog-nginx-production"})
	r := reconciler.NewReconciler(&failAfterMutation{Fake: fake})

	_, err := r.Reconcile(context.Background(), nginxWorkload(), types.StateAbsent)
	var failure *reconciler.Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, reconciler.PhaseVerified, failure.Phase)
	assert.Len(t, fake.Mutations(), 1)
}

// failAfterMutation fails every read once a mutation has been issued
type failAfterMutation struct {
	*authoritytest.Fake
	mutated bool
}

func (f *failAfterMutation) Get(ctx context.Context, path string) (map[string]any, error) {
	if f.mutated {
		return nil, &authority.Error{StatusCode: http.StatusBadGateway, Message: "bad gateway"}
	}
	return f.Fake.Get(ctx, path)
}

func (f *failAfterMutation) Delete(ctx context.Context, path string) error {
	f.mutated = true
	return f.Fake.Delete(ctx, path)
}

func TestValidationFailsBeforeNetwork(t *testing.T) {
	fake := newFake()
	w := nginxWorkload()
	w.Spec.DisplayName = ""

	_, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), w, types.StatePresent)
	require.Error(t, err)

	var verr *types.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Problems, "missing required field display_name")
	assert.Empty(t, fake.Calls())
}

func TestConflictStillDiffs(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		wantAction types.Action
	}{
		{
			name:       "stale conflict data updates",
			body:       map[string]any{"slug": "aws-nginx-demo", "displayName": "Stale"},
			wantAction: types.ActionUpdate,
		},
		{
			name:       "matching conflict data is a noop",
			body:       map[string]any{"slug": "aws-nginx-demo", "displayName": "AWS NGINX Demo"},
			wantAction: types.ActionNoOp,
		},
		{
			name:       "error envelope keys are not resource data",
			body:       map[string]any{"message": "conflict", "displayName": "AWS NGINX Demo"},
			wantAction: types.ActionNoOp,
		},
		{
			name:       "empty conflict body updates",
			body:       nil,
			wantAction: types.ActionUpdate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			fake.Fail(http.MethodGet, collectionPath, &authority.Error{
				StatusCode: http.StatusConflict,
				Message:    "conflict",
				Body:       tt.body,
			})

			r := reconciler.NewReconciler(fake, reconciler.WithCheckMode(true))
			outcome, err := r.Reconcile(context.Background(), awsCollection(), types.StatePresent)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, outcome.Action)
			assert.True(t, outcome.Final.Partial)
			assert.NotContains(t, outcome.Final.Data, "message")
			assert.Empty(t, fake.Mutations())
		})
	}
}

func TestConflictAppliedUpdate(t *testing.T) {
	conflict := map[string]any{"message": "conflict", "displayName": "Old Name"}

	tests := []struct {
		name     string
		path     string
		seed     map[string]any
		res      reconciler.Resource
		wantBody map[string]any
	}{
		{
			name: "collection replaces the full current object",
			path: collectionPath,
			seed: map[string]any{
				"slug":                    "aws-nginx-demo",
				"displayName":             "Old Name",
				"adminEmails":             []any{"admin@example.com"},
				"deviceType":              "aws-vm",
				"deviceTypeConfiguration": map[string]any{"accounts": []any{"123456789011"}},
			},
			res: awsCollection(),
			wantBody: map[string]any{
				"slug":                    "aws-nginx-demo",
				"displayName":             "AWS NGINX Demo",
				"adminEmails":             []any{"admin@example.com"},
				"deviceType":              "aws-vm",
				"deviceTypeConfiguration": map[string]any{"accounts": []any{"123456789011"}},
			},
		},
		{
			name: "instance sends the desired metadata",
			path: instancePath,
			seed: map[string]any{
				"id":   "i-0d69ab001748abd98",
				"data": map[string]any{"role": "webserver"},
			},
			res: &resource.Instance{Spec: types.InstanceSpec{
				CollectionSlug: "aws-nginx-demo",
				InstanceID:     "i-0d69ab001748abd98",
				Metadata:       map[string]string{"role": "webserver", "env": "prod"},
			}},
			wantBody: map[string]any{"data": map[string]any{"role": "webserver", "env": "prod"}},
		},
		{
			name: "workload sends the desired policy",
			path: workloadPath,
			seed: map[string]any{
				"slug":         "hotdog-nginx-production",
				"displayName":  "Old Name",
				"workloadType": "nginx",
			},
			res: nginxWorkload(),
			wantBody: map[string]any{
				"displayName":  "Hotdog Nginx",
				"workloadType": "nginx",
				"staticSANs":   []any{"hotdog.example.com"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := authoritytest.New()
			fake.Seed(tt.path, tt.seed)
			api := &conflictOnce{Fake: fake, path: tt.path, body: conflict}

			outcome, err := reconciler.NewReconciler(api).Reconcile(context.Background(), tt.res, types.StatePresent)
			require.NoError(t, err)
			assert.Equal(t, types.ActionUpdate, outcome.Action)
			assert.False(t, outcome.Final.Partial)

			mutations := fake.Mutations()
			require.Len(t, mutations, 1)
			assert.Equal(t, http.MethodPut, mutations[0].Method)
			assert.Equal(t, tt.wantBody, mutations[0].Body)
		})
	}
}

func TestConflictUnresolvedCollectionIsNotReplaced(t *testing.T) {
	fake := newFake()
	fake.Seed(collectionPath, map[string]any{"slug": "aws-nginx-demo", "displayName": "Old Name", "deviceType": "aws-vm"})
	fake.Fail(http.MethodGet, collectionPath, &authority.Error{
		StatusCode: http.StatusConflict,
		Message:    "conflict",
		Body:       map[string]any{"message": "conflict"},
	})

	_, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), awsCollection(), types.StatePresent)
	var failure *reconciler.Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, reconciler.PhaseUpdate, failure.Phase)
	assert.Empty(t, fake.Mutations())

	stored, _ := fake.Object(collectionPath)
	assert.Equal(t, "aws-vm", stored["deviceType"])
}

// conflictOnce answers the first read of path with a 409 carrying body
type conflictOnce struct {
	*authoritytest.Fake
	path string
	body map[string]any
	done bool
}

func (c *conflictOnce) Get(ctx context.Context, path string) (map[string]any, error) {
	if path == c.path && !c.done {
		c.done = true
		return nil, &authority.Error{
			Method:     http.MethodGet,
			Path:       path,
			StatusCode: http.StatusConflict,
			Message:    "conflict",
			Body:       c.body,
		}
	}
	return c.Fake.Get(ctx, path)
}

func TestCheckModeNeverMutates(t *testing.T) {
	fake := newFake()
	r := reconciler.NewReconciler(fake, reconciler.WithCheckMode(true))

	outcome, err := r.Reconcile(context.Background(), nginxWorkload(), types.StatePresent)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.True(t, outcome.CheckMode)
	assert.Equal(t, types.ActionCreate, outcome.Action)
	assert.False(t, outcome.Final.Present)
	assert.Empty(t, fake.Mutations())
}

func TestWorkloadIdempotentWithServerDefaults(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	r := reconciler.NewReconciler(fake)

	first, err := r.Reconcile(ctx, nginxWorkload(), types.StatePresent)
	require.NoError(t, err)
	assert.True(t, first.Changed)

	fake.Reset()
	second, err := r.Reconcile(ctx, nginxWorkload(), types.StatePresent)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Empty(t, fake.Mutations())
}

func TestPresentOnAbsentCreatesExactlyOnce(t *testing.T) {
	for _, res := range []reconciler.Resource{awsCollection(), nginxWorkload(), &resource.Instance{Spec: types.InstanceSpec{
		CollectionSlug: "aws-nginx-demo",
		InstanceID:     "i-0d69ab001748abd98",
	}}} {
		t.Run(string(res.Kind()), func(t *testing.T) {
			fake := newFake()
			outcome, err := reconciler.NewReconciler(fake).Reconcile(context.Background(), res, types.StatePresent)
			require.NoError(t, err)
			assert.Equal(t, types.ActionCreate, outcome.Action)
			assert.Len(t, fake.Mutations(), 1)
		})
	}
}

func TestCanceledContextDoesNotAbortMutation(t *testing.T) {
	fake := newFake()
	ctx, cancel := context.WithCancel(context.Background())
	r := reconciler.NewReconciler(&cancelOnGet{Fake: fake, cancel: cancel})

	outcome, err := r.Reconcile(ctx, awsCollection(), types.StatePresent)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	_, stored := fake.Object(collectionPath)
	assert.True(t, stored)
}

// cancelOnGet cancels the caller context right after the first read
type cancelOnGet struct {
	*authoritytest.Fake
	cancel context.CancelFunc
}

func (c *cancelOnGet) Get(ctx context.Context, path string) (map[string]any, error) {
	obj, err := c.Fake.Get(ctx, path)
	c.cancel()
	return obj, err
}

func (c *cancelOnGet) Post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return c.Fake.Post(ctx, path, body)
}

func TestDecide(t *testing.T) {
	schema := resource.CollectionSchema
	desired := state.Attributes{"display_name": "A"}
	present := types.PresentSnapshot(map[string]any{"displayName": "A"})
	changed := types.PresentSnapshot(map[string]any{"displayName": "B"})

	tests := []struct {
		name    string
		st      types.State
		current types.Snapshot
		want    types.Action
	}{
		{name: "present on absent", st: types.StatePresent, current: types.Absent, want: types.ActionCreate},
		{name: "present on equal", st: types.StatePresent, current: present, want: types.ActionNoOp},
		{name: "present on different", st: types.StatePresent, current: changed, want: types.ActionUpdate},
		{name: "absent on absent", st: types.StateAbsent, current: types.Absent, want: types.ActionAlreadyAbsent},
		{name: "absent on present", st: types.StateAbsent, current: present, want: types.ActionDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconciler.Decide(tt.st, schema, desired, tt.current))
		})
	}
}
