/*
Package resource implements reconciler.Resource for the three kinds managed
on the Smallstep authority.

Each kind declares its mapping table (CollectionSchema, InstanceSchema,
WorkloadSchema) and the concrete authority calls:

	Kind        Read / Update / Delete path                              Create
	Collection  /device-collections/{slug}                               POST /device-collections
	Instance    /device-collections/{slug}/instances/{id}                PUT (same path)
	Workload    /device-collections/{slug}/workloads/{workload}          POST /device-collections/{slug}/workloads

Admin emails and the collection device type are fixed at creation; they
are sent on create and never compared. The instance metadata key
smallstep:host:id is assigned by the authority and never compared.
*/
package resource
