/*
Package types defines the data model shared by every agentctl package.

The package contains the closed set of resource kinds, the identity of each
resource, the operator-facing specifications (desired state before
normalization), the remote snapshot and the immutable reconciliation outcome.

# Resource Kinds

agentctl manages three kinds of resources on the Smallstep authority:

  - Collection: a device collection, identified by its slug
  - Instance: a device inside a collection, identified by (collection slug, instance id)
  - Workload: a certificate-issuing policy inside a collection, identified by
    (collection slug, workload slug)

The set is closed. Code that needs per-kind behavior switches on
ResourceKind or dispatches through the reconciler.Resource interface; nothing
inspects types at runtime.

# Identity

Identity is the sole lookup key against the authority. It is derived from
the spec once and never changes across create and update cycles:

	spec := types.WorkloadSpec{CollectionSlug: "hotdog-production", WorkloadSlug: "nginx"}
	spec.Identity().String() // "hotdog-production/nginx"

# Snapshots

A Snapshot is either present (with the raw JSON object returned by the
authority) or absent. Absence is a value, not an error:

	if !snap.Present {
		// resource does not exist remotely
	}

A snapshot built from a 409 Conflict response is present with Partial set;
its Data holds whatever the conflict body carried.

# Validation

Each spec has a Validate(State) method returning a *ValidationError that
lists every problem at once. Validation runs before the first network call:

	if err := spec.Validate(types.StatePresent); err != nil {
		var verr *types.ValidationError
		errors.As(err, &verr) // verr.Problems
	}

The absent path only requires identity fields.
*/
package types
