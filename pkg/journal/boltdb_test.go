package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallstep/agentctl/pkg/metrics"
	"github.com/smallstep/agentctl/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	entries := []*Entry{
		{RunID: "r1", Kind: types.KindCollection, Identity: "c", State: types.StatePresent, Action: types.ActionCreate, Changed: true, StartedAt: base},
		{RunID: "r1", Kind: types.KindWorkload, Identity: "c/w", State: types.StatePresent, Action: types.ActionNoOp, StartedAt: base.Add(time.Second)},
		{RunID: "r2", Kind: types.KindCollection, Identity: "c", State: types.StateAbsent, Action: types.ActionDelete, Changed: true, StartedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, store.Append(e))
		assert.NotEmpty(t, e.ID)
	}

	got, err := store.List(Filter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, types.ActionDelete, got[0].Action)
	assert.Equal(t, types.ActionNoOp, got[1].Action)
	assert.Equal(t, types.ActionCreate, got[2].Action)
	assert.Equal(t, entries[0].ID, got[2].ID)
	assert.True(t, got[2].StartedAt.Equal(base))

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.JournalEntries))
}

func TestListFilter(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().Add(-time.Hour)
	for i, kind := range []types.ResourceKind{types.KindCollection, types.KindInstance, types.KindCollection, types.KindCollection} {
		require.NoError(t, store.Append(&Entry{Kind: kind, StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{name: "all", filter: Filter{}, want: 4},
		{name: "limit", filter: Filter{Limit: 2}, want: 2},
		{name: "kind", filter: Filter{Kind: types.KindCollection}, want: 3},
		{name: "kind and limit", filter: Filter{Kind: types.KindInstance, Limit: 5}, want: 1},
		{name: "no match", filter: Filter{Kind: types.KindWorkload}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			for _, e := range got {
				if tt.filter.Kind != "" {
					assert.Equal(t, tt.filter.Kind, e.Kind)
				}
			}
		})
	}
}

func TestAppendDefaults(t *testing.T) {
	store := newTestStore(t)
	before := time.Now()

	e := &Entry{Kind: types.KindInstance, Identity: "c/i"}
	require.NoError(t, store.Append(e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.StartedAt.Before(before.Truncate(time.Second)))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	for _, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour, time.Minute} {
		require.NoError(t, store.Append(&Entry{Kind: types.KindCollection, StartedAt: now.Add(-age)}))
	}

	removed, err := store.Prune(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	removed, err = store.Prune(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(&Entry{Kind: types.KindWorkload, Identity: "c/w", Error: "boom"}))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.List(Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "boom", got[0].Error)
}
