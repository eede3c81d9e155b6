package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/smallstep/agentctl/pkg/reconciler"
	"github.com/smallstep/agentctl/pkg/resource"
	"github.com/smallstep/agentctl/pkg/types"
	"gopkg.in/yaml.v3"
)

// APIVersion is the only manifest version understood
const APIVersion = "agent.smallstep.com/v1"

// document is the envelope of one YAML document
type document struct {
	APIVersion string    `yaml:"apiVersion"`
	Kind       string    `yaml:"kind"`
	State      string    `yaml:"state"`
	Spec       yaml.Node `yaml:"spec"`
}

// Entry is one validated resource declaration
type Entry struct {
	// Index is the zero-based position of the document in its file
	Index    int
	State    types.State
	Resource reconciler.Resource
}

// Load reads a manifest file; "-" reads standard input
func Load(path string) ([]Entry, error) {
	if path == "-" {
		return Parse(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes and validates every document of a manifest stream. Nothing
// is returned unless every document is valid.
func Parse(r io.Reader) ([]Entry, error) {
	dec := yaml.NewDecoder(r)
	var entries []Entry
	for index := 0; ; index++ {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", index, err)
		}
		if doc.APIVersion == "" && doc.Kind == "" && doc.Spec.IsZero() {
			continue
		}

		entry, err := parseDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", index, err)
		}
		entry.Index = index
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, errors.New("manifest contains no resources")
	}
	return entries, nil
}

func parseDocument(doc document) (Entry, error) {
	if doc.APIVersion != APIVersion {
		return Entry{}, fmt.Errorf("unsupported apiVersion %q, expected %q", doc.APIVersion, APIVersion)
	}
	kind, err := types.ParseKind(doc.Kind)
	if err != nil {
		return Entry{}, err
	}
	st, err := types.ParseState(doc.State)
	if err != nil {
		return Entry{}, err
	}
	if doc.Spec.IsZero() {
		return Entry{}, fmt.Errorf("%s has no spec", kind)
	}

	var res reconciler.Resource
	switch kind {
	case types.KindCollection:
		c := &resource.Collection{}
		err = decodeStrict(&doc.Spec, &c.Spec)
		res = c
	case types.KindInstance:
		i := &resource.Instance{}
		err = decodeStrict(&doc.Spec, &i.Spec)
		res = i
	case types.KindWorkload:
		w := &resource.Workload{}
		err = decodeStrict(&doc.Spec, &w.Spec)
		res = w
	}
	if err != nil {
		return Entry{}, fmt.Errorf("invalid %s spec: %w", kind, err)
	}

	if err := res.Validate(st); err != nil {
		return Entry{}, err
	}
	return Entry{State: st, Resource: res}, nil
}

// decodeStrict rejects fields the spec type does not declare
func decodeStrict(node *yaml.Node, out any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
