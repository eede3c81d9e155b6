package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/reconciler"
	"github.com/smallstep/agentctl/pkg/state"
	"github.com/smallstep/agentctl/pkg/types"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an output format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or yaml)", s)
	}
}

// Build renders the result document of one reconciliation:
// {changed, <result key>: null | {...}}. The resource entry is null when
// the final snapshot is absent. info may be nil when the agents authority
// was not resolved.
func Build(res reconciler.Resource, outcome types.Outcome, info *authority.AgentInfo) map[string]any {
	return map[string]any{
		"changed":              outcome.Changed,
		res.Kind().ResultKey(): Snapshot(res, outcome.Final, info),
	}
}

// Snapshot renders a final snapshot as identity fields, normalized
// attributes, team and fingerprint, and the raw response
func Snapshot(res reconciler.Resource, snap types.Snapshot, info *authority.AgentInfo) map[string]any {
	if !snap.Present {
		return nil
	}

	out := map[string]any(state.Normalize(res.Schema(), snap.Data))
	maps.Copy(out, res.Identity().Fields())
	if info != nil {
		out["team"] = info.Team
		out["fingerprint"] = info.Fingerprint
	}
	out["response"] = snap.Data
	return out
}

// FailureReport is emitted instead of a result when a command fails
type FailureReport struct {
	Failed    bool           `json:"failed" yaml:"failed"`
	Msg       string         `json:"msg" yaml:"msg"`
	Exception string         `json:"exception" yaml:"exception"`
	Failure   FailureDetails `json:"failure" yaml:"failure"`
}

// FailureDetails carries the authority's answer and the parameters in
// effect
type FailureDetails struct {
	StatusCode int               `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Message    string            `json:"message,omitempty" yaml:"message,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Params     map[string]any    `json:"params,omitempty" yaml:"params,omitempty"`
}

// BuildFailure converts any error into a failure report
func BuildFailure(err error) FailureReport {
	r := FailureReport{
		Failed:    true,
		Msg:       err.Error(),
		Exception: chain(err),
	}

	var failure *reconciler.Failure
	if errors.As(err, &failure) {
		r.Failure.Params = failure.Params
	}
	if aerr, ok := authority.AsError(err); ok {
		r.Failure.StatusCode = aerr.StatusCode
		r.Failure.Message = aerr.Message
		r.Failure.Headers = aerr.Headers
	}
	return r
}

// chain lists the error and every error it wraps, outermost first, with
// the reconciliation phase where one is known
func chain(err error) string {
	var lines []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		line := fmt.Sprintf("%T: %s", e, e.Error())
		if f, ok := e.(*reconciler.Failure); ok {
			line = fmt.Sprintf("%T (phase %s): %s", e, f.Phase, e.Error())
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Writer encodes a stream of documents. JSON documents are indented and
// separated by newlines; YAML documents are separated by ---.
type Writer struct {
	format Format
	json   *json.Encoder
	yaml   *yaml.Encoder
}

// NewWriter creates a document writer
func NewWriter(w io.Writer, format Format) *Writer {
	out := &Writer{format: format}
	if format == FormatYAML {
		out.yaml = yaml.NewEncoder(w)
		out.yaml.SetIndent(2)
	} else {
		out.json = json.NewEncoder(w)
		out.json.SetIndent("", "  ")
	}
	return out
}

// Write encodes one document
func (w *Writer) Write(doc any) error {
	if w.yaml != nil {
		return w.yaml.Encode(doc)
	}
	return w.json.Encode(doc)
}

// Close flushes the writer
func (w *Writer) Close() error {
	if w.yaml != nil {
		return w.yaml.Close()
	}
	return nil
}
