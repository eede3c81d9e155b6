package authority

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is returned for every non-2xx response from the authority
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Headers    map[string]string
	// Body is the decoded JSON object of the response, when it was one.
	// A conflict response may carry the existing resource here.
	Body map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("authority returned %d for %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
}

// AsError extracts an *Error from an error chain
func AsError(err error) (*Error, bool) {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 from the authority
func IsNotFound(err error) bool {
	aerr, ok := AsError(err)
	return ok && aerr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the authority
func IsConflict(err error) bool {
	aerr, ok := AsError(err)
	return ok && aerr.StatusCode == http.StatusConflict
}

// flattenHeaders keeps one string per header, joining repeated values
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
