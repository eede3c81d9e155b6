/*
Package manifest loads declarative resource manifests.

A manifest is a YAML stream of one or more documents:

	apiVersion: agent.smallstep.com/v1
	kind: Workload          # Collection, Instance or Workload
	state: present          # or absent; defaults to present
	spec:
	  collection_slug: hotdog-production
	  workload_slug: hotdog-nginx-production
	  display_name: Hotdog Nginx
	  workload_type: nginx
	  admin_emails: [admin@example.com]

The spec is decoded strictly into the typed spec of its kind, so a
misspelled field is an error rather than a silently ignored key. Every
document is validated for its requested state before Parse returns.
*/
package manifest
