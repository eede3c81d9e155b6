package reconciler

import (
	"context"
	"maps"

	"github.com/rs/zerolog"
	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/log"
	"github.com/smallstep/agentctl/pkg/metrics"
	"github.com/smallstep/agentctl/pkg/state"
	"github.com/smallstep/agentctl/pkg/types"
)

// Reconciler converges one remote resource per call to its desired state
type Reconciler struct {
	api       authority.API
	checkMode bool
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithCheckMode makes Reconcile decide without mutating
func WithCheckMode(enabled bool) Option {
	return func(r *Reconciler) {
		r.checkMode = enabled
	}
}

// NewReconciler creates a new reconciler
func NewReconciler(api authority.API, opts ...Option) *Reconciler {
	r := &Reconciler{api: api}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Decide picks the action for a requested state given the fetched snapshot.
// desired must already be normalized through the resource's schema.
func Decide(st types.State, schema *state.Schema, desired state.Attributes, current types.Snapshot) types.Action {
	if st == types.StateAbsent {
		if current.Present {
			return types.ActionDelete
		}
		return types.ActionAlreadyAbsent
	}
	if !current.Present {
		return types.ActionCreate
	}
	if state.RequiresUpdate(desired, state.Normalize(schema, current.Data)) {
		return types.ActionUpdate
	}
	return types.ActionNoOp
}

// Reconcile runs one fetch, decide, apply and re-fetch cycle. At most one
// mutating call is issued. The returned Outcome is final; a *Failure is
// returned when any step fails.
func (r *Reconciler) Reconcile(ctx context.Context, res Resource, st types.State) (types.Outcome, error) {
	kind := res.Kind()
	id := res.Identity()
	logger := log.WithResource(string(kind), id.String())

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ReconcileDuration, string(kind))

	raw, err := res.Desired()
	if err != nil {
		return types.Outcome{}, r.fail(logger, res, nil, PhaseStart, "", err)
	}
	if err := res.Validate(st); err != nil {
		return types.Outcome{}, r.fail(logger, res, raw, PhaseStart, "", err)
	}

	schema := res.Schema()
	desired := state.NormalizeDesired(schema, raw)
	logger.Debug().Str("phase", string(PhaseStart)).Str("state", string(st)).Msg("Reconciling")

	current, err := Fetch(ctx, r.api, res)
	if err != nil {
		return types.Outcome{}, r.fail(logger, res, raw, PhaseStart, "", err)
	}
	if current.Present {
		if unknown := schema.Unmapped(current.Data); len(unknown) > 0 {
			logger.Debug().Strs("attributes", unknown).Str("schema", schema.Version).Msg("Ignoring unmapped remote attributes")
		}
	}
	logger.Debug().
		Str("phase", string(PhaseFetched)).
		Bool("present", current.Present).
		Bool("partial", current.Partial).
		Msg("Fetched remote state")

	action := Decide(st, schema, desired, current)
	phase := phaseFor(action)
	logger.Debug().Str("phase", string(phase)).Msg("Decided action")

	outcome := types.Outcome{
		Action:    action,
		Changed:   action.Mutating(),
		CheckMode: r.checkMode,
		Final:     current,
	}
	switch action {
	case types.ActionCreate:
		outcome.Diff = state.Report(desired, state.Attributes{})
		outcome.Attributes = state.Changed(desired, state.Attributes{})
	case types.ActionUpdate:
		normalized := state.Normalize(schema, current.Data)
		outcome.Diff = state.Report(desired, normalized)
		outcome.Attributes = state.Changed(desired, normalized)
	}

	op, mutating := action.Operation()
	if !mutating || r.checkMode {
		metrics.ReconcileTotal.WithLabelValues(string(kind), string(action)).Inc()
		return outcome, nil
	}

	if err := Apply(ctx, r.api, op, res, desired, current); err != nil {
		return types.Outcome{}, r.fail(logger, res, raw, phase, op, err)
	}
	logger.Info().Str("action", string(action)).Msg("Applied change")

	final, err := Fetch(context.WithoutCancel(ctx), r.api, res)
	if err != nil {
		return types.Outcome{}, r.fail(logger, res, raw, PhaseVerified, "", err)
	}
	logger.Debug().Str("phase", string(PhaseVerified)).Bool("present", final.Present).Msg("Verified remote state")

	outcome.Final = final
	metrics.ReconcileTotal.WithLabelValues(string(kind), string(action)).Inc()
	return outcome, nil
}

func (r *Reconciler) fail(logger zerolog.Logger, res Resource, params state.Attributes, phase Phase, op types.Operation, err error) error {
	all := res.Identity().Fields()
	maps.Copy(all, params)

	f := &Failure{
		Kind:     res.Kind(),
		Identity: res.Identity(),
		Phase:    phase,
		Op:       op,
		Params:   redact(all),
		Err:      err,
	}
	metrics.ReconcileErrors.WithLabelValues(string(f.Kind), string(phase)).Inc()
	logger.Debug().Str("phase", string(PhaseFailed)).Str("failed_in", string(phase)).Err(err).Msg("Reconciliation failed")
	return f
}
