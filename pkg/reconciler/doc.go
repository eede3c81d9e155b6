/*
Package reconciler converges one remote resource to its desired state.

A reconciliation is a single, synchronous run of a small state machine:

	present:  Start → Fetched → Create | Update | NoOp    → Verified
	absent:   Start → Fetched → Delete | AlreadyAbsent    → Verified
	any error                                             → Failed

Validation runs in Start, before the first network call. Fetch turns a 404
into the absent snapshot and a 409 into a present snapshot marked Partial,
built from whatever the conflict response carried; a partial snapshot is
diffed like any other, so a stale conflict body leads to an update rather
than a silent no-op. Conflicts are never retried.

# Deciding

Decide is pure. The desired attributes and the fetched representation are
both passed through the resource's state.Schema, then compared with
state.RequiresUpdate:

	action := reconciler.Decide(types.StatePresent, schema, desired, snapshot)

# Applying

A mutating action issues exactly one call through Apply and then fetches
the resource again to populate Outcome.Final. Apply detaches the call from
caller cancellation with context.WithoutCancel: once a mutation is sent it
runs to completion (bounded by the client timeout) and the outcome is
reported. Nothing is retried and there is no convergence loop.

In check mode the decision is reported (Changed is true when a mutation
would be issued) but Apply is never called and Final is the fetched
snapshot.

# Failures

Every error ends the run and is returned as a *Failure carrying the kind,
identity, the phase that was running, the operation (for applier errors)
and the parameters in effect with sensitive values masked. errors.As
reaches the underlying *authority.Error or *types.ValidationError:

	outcome, err := r.Reconcile(ctx, res, types.StatePresent)
	var failure *reconciler.Failure
	if errors.As(err, &failure) {
		if aerr, ok := failure.Authority(); ok {
			fmt.Println(aerr.StatusCode, aerr.Message)
		}
	}

# Metrics

Each run increments agentctl_reconcile_total{kind,action} on success or
agentctl_reconcile_errors_total{kind,phase} on failure, and observes
agentctl_reconcile_duration_seconds{kind}.
*/
package reconciler
