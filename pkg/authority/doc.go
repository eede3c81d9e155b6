/*
Package authority is the HTTP client for the Smallstep API.

The client performs plain JSON CRUD against https://<host>/api and knows
nothing about resource semantics; per-kind paths and bodies live in package
resource. Every request carries the bearer token, a fresh X-Request-Id and
the agentctl User-Agent.

# Errors

Any non-2xx response becomes an *Error with the status code, the message
from the JSON body (or the status text), the response headers and, when the
body was a JSON object, the decoded body:

	obj, err := client.Get(ctx, authority.Path("device-collections", slug))
	switch {
	case authority.IsNotFound(err):
		// absent
	case authority.IsConflict(err):
		aerr, _ := authority.AsError(err)
		_ = aerr.Body // whatever the conflict carried
	case err != nil:
		return err
	}

Transport failures are wrapped with %w and are not *Error values.

# Rate Limiting

Requests pass through a token bucket (golang.org/x/time/rate) when
Config.RateLimit is set. The client never retries: a mutation is issued at
most once and its outcome is reported as-is.

# Testing

Package authoritytest provides an in-memory Fake implementing API, with
failure injection and call recording.
*/
package authority
