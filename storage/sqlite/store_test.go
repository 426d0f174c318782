package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := open(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, FileName), store.(*Store).Path())
}

func TestStore_NotReady(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Upsert(ctx, []*core.Entry{{ID: "a", Vector: []float32{1}}}), storage.ErrCollectionNotReady)
	_, err := s.Query(ctx, []float32{1}, 1, nil)
	assert.ErrorIs(t, err, storage.ErrCollectionNotReady)
}

func TestStore_EnsureCollection(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := open(dir)
	require.NoError(t, err)
	require.NoError(t, first.EnsureCollection(ctx, "trade", 4))
	require.NoError(t, first.Close())

	second, err := open(dir)
	require.NoError(t, err)
	defer second.Close()

	assert.ErrorIs(t, second.EnsureCollection(ctx, "trade", 8), storage.ErrDimensionMismatch)
	require.NoError(t, second.EnsureCollection(ctx, "trade", 4))

	collection, err := second.Collection()
	require.NoError(t, err)
	assert.Equal(t, core.MetricCosine, collection.Metric)
	assert.False(t, collection.CreatedAt.IsZero())
}

func TestStore_UpsertAndQuery(t *testing.T) {
	s := newTestStore(t, WithUpsertBatchSize(2))
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "trade", 2))

	entries := make([]*core.Entry, 5)
	for i := range entries {
		entries[i] = &core.Entry{
			ID:     fmt.Sprintf("e%d", i),
			Vector: []float32{1, float32(i)},
			Text:   fmt.Sprintf("entry %d", i),
			Metadata: core.Metadata{
				core.MetaHSCode: "010121",
				"quantity":      float64(i * 10),
				"estimated":     i%2 == 0,
			},
		}
	}
	require.NoError(t, s.Upsert(ctx, entries))
	require.NoError(t, s.Upsert(ctx, entries), "upsert is idempotent")

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	matches, err := s.Query(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "e0", matches[0].ID)
	assert.Equal(t, "e1", matches[1].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "010121", matches[0].Metadata[core.MetaHSCode])
	assert.Equal(t, 0.0, matches[0].Metadata["quantity"])
	assert.Equal(t, true, matches[0].Metadata["estimated"])

	filter, err := storage.ParseFilter([]string{"quantity>=30"})
	require.NoError(t, err)
	matches, err = s.Query(ctx, []float32{1, 0}, 10, filter)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "e3", matches[0].ID)
	assert.Equal(t, "e4", matches[1].ID)
}

func TestStore_UpsertFailureIndex(t *testing.T) {
	s := newTestStore(t, WithUpsertBatchSize(2))
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "trade", 2))

	// Closing the database makes the first batch fail.
	require.NoError(t, s.db.Close())
	err := s.Upsert(ctx, []*core.Entry{{ID: "a", Vector: []float32{1, 0}}})

	var upsertErr *storage.UpsertError
	require.ErrorAs(t, err, &upsertErr)
	assert.Equal(t, 0, upsertErr.Index)
	assert.ErrorIs(t, err, storage.ErrUpsertFailed)
}

func TestStore_Journal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	commit := &core.FileCommit{
		Name:        "comtrade_851712_20240302.json",
		Kind:        core.SourceComtrade,
		Records:     10,
		Dropped:     1,
		Vectors:     9,
		Digest:      core.Digest([]byte("x")),
		CommittedAt: at,
	}
	require.NoError(t, s.Record(ctx, commit))
	require.NoError(t, s.Record(ctx, commit))

	commits, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, commit, commits[0])
}

func TestStore_Scan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, "other", 2))
	require.NoError(t, s.Upsert(ctx, []*core.Entry{{ID: "0", Vector: []float32{1, 0}, Text: "other"}}))

	require.NoError(t, s.EnsureCollection(ctx, "trade", 2))
	var entries []*core.Entry
	for _, id := range []string{"d", "b", "e", "a", "c"} {
		entries = append(entries, &core.Entry{
			ID:       id,
			Vector:   []float32{1, 1},
			Text:     "text " + id,
			Metadata: core.Metadata{"source": "bill_of_lading"},
		})
	}
	require.NoError(t, s.Upsert(ctx, entries))

	page, err := s.Scan(ctx, "", 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "a", page[0].ID)
	assert.Equal(t, "c", page[2].ID)
	assert.Equal(t, "bill_of_lading", page[0].Metadata["source"])

	page, err = s.Scan(ctx, "c", 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].ID)
	assert.Equal(t, "e", page[1].ID)
}
