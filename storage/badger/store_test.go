package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	s, err := newStore(backend, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id string, vector []float32, meta core.Metadata) *core.Entry {
	return &core.Entry{ID: id, Vector: vector, Text: "text " + id, Metadata: meta}
}

func TestStore_NotReady(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []*core.Entry{entry("a", []float32{1, 0}, nil)})
	assert.ErrorIs(t, err, storage.ErrCollectionNotReady)

	_, err = s.Query(ctx, []float32{1, 0}, 5, nil)
	assert.ErrorIs(t, err, storage.ErrCollectionNotReady)

	_, err = s.Count(ctx)
	assert.ErrorIs(t, err, storage.ErrCollectionNotReady)
}

func TestStore_EnsureCollection(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.EnsureCollection(ctx, "trade", 3))
	require.NoError(t, store.EnsureCollection(ctx, "trade", 3), "second call opens the existing collection")

	collection, err := store.Collection()
	require.NoError(t, err)
	assert.Equal(t, 3, collection.Dimension)
	assert.Equal(t, core.MetricCosine, collection.Metric)
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	err = reopened.EnsureCollection(ctx, "trade", 4)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	assert.ErrorIs(t, reopened.EnsureCollection(ctx, "", 4), storage.ErrInvalidCollection)
	assert.ErrorIs(t, reopened.EnsureCollection(ctx, "a:b", 4), storage.ErrInvalidCollection)
	assert.ErrorIs(t, reopened.EnsureCollection(ctx, "other", 0), storage.ErrInvalidCollection)
}

func TestStore_UpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "trade", 2))

	entries := []*core.Entry{
		entry("a", []float32{1, 0}, core.Metadata{"flow": "Import"}),
		entry("b", []float32{0, 1}, core.Metadata{"flow": "Export"}),
	}
	require.NoError(t, s.Upsert(ctx, entries))
	require.NoError(t, s.Upsert(ctx, entries))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// overwrite changes the stored text
	updated := entry("a", []float32{1, 0}, core.Metadata{"flow": "Import"})
	updated.Text = "replaced"
	require.NoError(t, s.Upsert(ctx, []*core.Entry{updated}))

	matches, err := s.Query(ctx, []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "replaced", matches[0].Text)

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_UpsertValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "trade", 2))

	err := s.Upsert(ctx, []*core.Entry{
		entry("a", []float32{1, 0}, nil),
		entry("b", []float32{1, 0, 0}, nil),
	})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	assert.ErrorIs(t, err, storage.ErrUpsertFailed)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "validation failures write nothing")
}

func TestStore_UpsertPartialFailure(t *testing.T) {
	s := newTestStore(t, WithUpsertBatchSize(10))
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "trade", 2))

	boom := errors.New("disk full")
	s.beforeBatch = func(start int) error {
		if start == 20 {
			return boom
		}
		return nil
	}

	entries := make([]*core.Entry, 35)
	for i := range entries {
		entries[i] = entry(fmt.Sprintf("e%02d", i), []float32{1, float32(i)}, nil)
	}

	err := s.Upsert(ctx, entries)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUpsertFailed)
	assert.ErrorIs(t, err, boom)

	var upsertErr *storage.UpsertError
	require.ErrorAs(t, err, &upsertErr)
	assert.Equal(t, 20, upsertErr.Index)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count, "earlier batches stay durable")

	s.beforeBatch = nil
	require.NoError(t, s.Upsert(ctx, entries))
	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 35, count)
}

func TestStore_Query(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, "trade", 3))

	require.NoError(t, s.Upsert(ctx, []*core.Entry{
		entry("exact", []float32{2, 0, 0}, core.Metadata{"flow": "Import", core.MetaDate: "2023-10-01"}),
		entry("close", []float32{0.9, 0.1, 0}, core.Metadata{"flow": "Export", core.MetaDate: "2024-01-01"}),
		entry("far", []float32{0, 0, 1}, core.Metadata{"flow": "Import", core.MetaDate: "2024-02-01"}),
	}))

	t.Run("ranked by cosine similarity", func(t *testing.T) {
		matches, err := s.Query(ctx, []float32{1, 0, 0}, 10, nil)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "exact", matches[0].ID)
		assert.Equal(t, "close", matches[1].ID)
		assert.Equal(t, "far", matches[2].ID)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-6, "stored vectors are unit-normalized")
		assert.Equal(t, "text exact", matches[0].Text)
	})

	t.Run("top k", func(t *testing.T) {
		matches, err := s.Query(ctx, []float32{1, 0, 0}, 1, nil)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "exact", matches[0].ID)
	})

	t.Run("filtered", func(t *testing.T) {
		filter := storage.Filter{
			storage.Eq("flow", "Import"),
			{Key: core.MetaDate, Op: storage.OpGte, Value: "2024-01-01"},
		}
		matches, err := s.Query(ctx, []float32{1, 0, 0}, 10, filter)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "far", matches[0].ID)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := s.Query(ctx, []float32{1, 0}, 10, nil)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

		_, err = s.Query(ctx, []float32{1, 0, 0}, 0, nil)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestStore_CollectionsIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, "first", 2))
	require.NoError(t, s.Upsert(ctx, []*core.Entry{entry("a", []float32{1, 0}, nil)}))

	require.NoError(t, s.EnsureCollection(ctx, "second", 2))
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_Journal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, &core.FileCommit{Name: "bl_2.json", Kind: core.SourceBillOfLading, Vectors: 3, CommittedAt: base.Add(time.Minute)}))
	require.NoError(t, s.Record(ctx, &core.FileCommit{Name: "comtrade_1.json", Kind: core.SourceComtrade, Vectors: 5, CommittedAt: base}))

	commits, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "comtrade_1.json", commits[0].Name)
	assert.Equal(t, "bl_2.json", commits[1].Name)

	// re-recording a name replaces it
	require.NoError(t, s.Record(ctx, &core.FileCommit{Name: "bl_2.json", Vectors: 4}))
	commits, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Error(t, s.Record(ctx, &core.FileCommit{}))
}

func TestNewMemoryStore(t *testing.T) {
	store, err := NewMemoryStore(WithUpsertBatchSize(5))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "closing twice is harmless")
}

func TestStore_Scan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureCollection(ctx, "trade-other", 2))
	require.NoError(t, s.Upsert(ctx, []*core.Entry{entry("zz", []float32{1, 0}, nil)}))

	require.NoError(t, s.EnsureCollection(ctx, "trade", 2))
	var entries []*core.Entry
	for _, id := range []string{"d", "b", "e", "a", "c"} {
		entries = append(entries, entry(id, []float32{1, 1}, core.Metadata{"source": "comtrade"}))
	}
	require.NoError(t, s.Upsert(ctx, entries))

	page, err := s.Scan(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].ID)
	assert.Equal(t, "b", page[1].ID)
	assert.Equal(t, "text a", page[0].Text)
	assert.Equal(t, "comtrade", page[0].Metadata["source"])
	assert.Nil(t, page[0].Vector)

	page, err = s.Scan(ctx, "b", 10)
	require.NoError(t, err)
	var ids []string
	for _, e := range page {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"c", "d", "e"}, ids)

	page, err = s.Scan(ctx, "e", 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}
