package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallstep/agentctl/pkg/authority"
	"github.com/smallstep/agentctl/pkg/authority/authoritytest"
	"github.com/smallstep/agentctl/pkg/journal"
	"github.com/smallstep/agentctl/pkg/manifest"
	"github.com/smallstep/agentctl/pkg/report"
	"github.com/smallstep/agentctl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `
apiVersion: agent.smallstep.com/v1
kind: Collection
spec:
  slug: web
  display_name: Web Servers
  admin_emails: [admin@example.com]
  device_type:
    aws_vm:
      accounts: ["123456789012"]
---
apiVersion: agent.smallstep.com/v1
kind: Instance
spec:
  collection_slug: web
  instance_id: i-1
  metadata:
    role: frontend
`

func parseManifest(t *testing.T, doc string) []manifest.Entry {
	t.Helper()
	entries, err := manifest.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return entries
}

func newTestJournal(t *testing.T) *journal.BoltStore {
	t.Helper()
	store, err := journal.NewBoltStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// decodeResults splits the JSON result stream into documents
func decodeResults(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	dec := json.NewDecoder(buf)
	var docs []map[string]any
	for dec.More() {
		var doc map[string]any
		require.NoError(t, dec.Decode(&doc))
		docs = append(docs, doc)
	}
	return docs
}

func newFakeWithAgents() *authoritytest.Fake {
	fake := authoritytest.New()
	fake.AuthorityList = []authority.Authority{
		{ID: "1", Domain: "ssh.acme.ca.smallstep.com"},
		{ID: "2", Domain: "agents.acme.ca.smallstep.com", Fingerprint: "f00d"},
	}
	return fake
}

func TestRunnerApplyThenConverge(t *testing.T) {
	fake := newFakeWithAgents()
	store := newTestJournal(t)
	entries := parseManifest(t, testManifest)

	var out bytes.Buffer
	w := report.NewWriter(&out, report.FormatJSON)
	r := newRunner(fake, store, w)
	require.NoError(t, r.run(context.Background(), entries))

	docs := decodeResults(t, &out)
	require.Len(t, docs, 2)
	assert.Equal(t, true, docs[0]["changed"])
	collection := docs[0]["smallstep_collection"].(map[string]any)
	assert.Equal(t, "web", collection["collection_slug"])
	assert.Equal(t, "acme", collection["team"])
	assert.Equal(t, "f00d", collection["fingerprint"])

	// agents authority looked up once per run
	lookups := 0
	for _, c := range fake.Calls() {
		if c.Path == "/authorities" {
			lookups++
		}
	}
	assert.Equal(t, 1, lookups)

	fake.Reset()
	out.Reset()
	r = newRunner(fake, store, report.NewWriter(&out, report.FormatJSON))
	require.NoError(t, r.run(context.Background(), entries))

	assert.Empty(t, fake.Mutations())
	for _, doc := range decodeResults(t, &out) {
		assert.Equal(t, false, doc["changed"])
	}

	history, err := store.List(journal.Filter{})
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, types.ActionNoOp, history[0].Action)
	assert.Equal(t, types.ActionCreate, history[3].Action)
	assert.Equal(t, []string{"display_name"}, history[3].Attributes)
	assert.Empty(t, history[0].Attributes)
	assert.NotEqual(t, history[0].RunID, history[3].RunID)
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	fake := newFakeWithAgents()
	fake.Fail(http.MethodGet, "/device-collections/web", &authority.Error{
		StatusCode: http.StatusInternalServerError,
		Message:    "upstream unavailable",
	})
	store := newTestJournal(t)

	var out bytes.Buffer
	r := newRunner(fake, store, report.NewWriter(&out, report.FormatJSON))
	err := r.run(context.Background(), parseManifest(t, testManifest))
	require.Error(t, err)

	docs := decodeResults(t, &out)
	require.Len(t, docs, 1)
	assert.Equal(t, true, docs[0]["failed"])
	failure := docs[0]["failure"].(map[string]any)
	assert.Equal(t, float64(http.StatusInternalServerError), failure["status_code"])

	// the instance is never reached
	for _, c := range fake.Calls() {
		assert.NotContains(t, c.Path, "/instances/")
	}

	history, err := store.List(journal.Filter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Error, "upstream unavailable")
}

func TestRunnerCheckModeWithDiff(t *testing.T) {
	fake := newFakeWithAgents()

	var out, diff bytes.Buffer
	r := newRunner(fake, nil, report.NewWriter(&out, report.FormatJSON))
	r.checkMode = true
	r.diffOut = &diff
	require.NoError(t, r.run(context.Background(), parseManifest(t, testManifest)))

	assert.Empty(t, fake.Mutations())
	assert.Contains(t, diff.String(), "Collection web (create: display_name)")
	assert.Contains(t, diff.String(), "Instance web/i-1 (create: metadata)")
	assert.Contains(t, diff.String(), "Web Servers")

	docs := decodeResults(t, &out)
	require.Len(t, docs, 2)
	assert.Equal(t, true, docs[0]["changed"])
	assert.Nil(t, docs[0]["smallstep_collection"])
}

func TestRunnerWithoutAgentsAuthority(t *testing.T) {
	fake := authoritytest.New()

	var out bytes.Buffer
	r := newRunner(fake, nil, report.NewWriter(&out, report.FormatJSON))
	require.NoError(t, r.run(context.Background(), parseManifest(t, testManifest)))

	docs := decodeResults(t, &out)
	require.Len(t, docs, 2)
	instance := docs[1]["smallstep_instance"].(map[string]any)
	assert.NotContains(t, instance, "team")
	assert.Equal(t, map[string]any{"role": "frontend"}, instance["metadata"])
}

func TestAbsentInReverse(t *testing.T) {
	entries := parseManifest(t, testManifest)
	got := absentInReverse(entries)

	require.Len(t, got, 2)
	assert.Equal(t, types.KindInstance, got[0].Resource.Kind())
	assert.Equal(t, types.KindCollection, got[1].Resource.Kind())
	for _, e := range got {
		assert.Equal(t, types.StateAbsent, e.State)
	}
	// input untouched
	assert.Equal(t, types.StatePresent, entries[0].State)
}

func TestRenderHistory(t *testing.T) {
	tests := []struct {
		name     string
		entries  []*journal.Entry
		contains []string
	}{
		{
			name:     "empty",
			contains: []string{"No runs recorded"},
		},
		{
			name: "entries",
			entries: []*journal.Entry{
				{RunID: "0123456789abcdef", Kind: types.KindWorkload, Identity: "web/nginx", State: types.StatePresent, Action: types.ActionUpdate, CheckMode: true, Changed: true},
				{RunID: "r2", Kind: types.KindCollection, Identity: "web", State: types.StatePresent, Error: strings.Repeat("x", 100)},
			},
			contains: []string{"IDENTITY", "web/nginx", "update (check)", "01234567", "..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderHistory(&buf, tt.entries)
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}
