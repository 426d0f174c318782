package reembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/tradevec/ai/mock"
	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/embedding"
	"github.com/poiesic/tradevec/ledger"
	"github.com/poiesic/tradevec/storage"
	"github.com/poiesic/tradevec/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 4

func setupStore(t *testing.T, n int) storage.Store {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, "trade", testDim))

	entries := make([]*core.Entry, n)
	for i := range entries {
		entries[i] = &core.Entry{
			ID:       fmt.Sprintf("entry-%02d", i),
			Vector:   []float32{1, 0, 0, 0},
			Text:     fmt.Sprintf("shipment %d of smartphones", i),
			Metadata: core.Metadata{core.MetaSource: "bill_of_lading", "index": float64(i)},
		}
	}
	if n > 0 {
		require.NoError(t, store.Upsert(ctx, entries))
	}
	return store
}

func setupLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	dir := t.TempDir()
	l, err := ledger.New(filepath.Join(dir, "raw"), filepath.Join(dir, "processed"))
	require.NoError(t, err)
	return l
}

func newBatcher(t *testing.T, embedder *mock.MockEmbedder) *embedding.Batcher {
	t.Helper()
	b, err := embedding.NewBatcher(embedder,
		embedding.WithBatchSize(3),
		embedding.WithDimension(testDim),
		embedding.WithMaxRetries(1),
		embedding.WithRetryDelay(time.Millisecond),
	)
	require.NoError(t, err)
	t.Cleanup(b.Release)
	return b
}

func TestNewReembedder(t *testing.T) {
	store := setupStore(t, 0)
	batcher := newBatcher(t, mock.NewMockEmbedder(testDim))
	l := setupLedger(t)

	_, err := NewReembedder(nil, batcher, l)
	assert.ErrorIs(t, err, ErrStoreRequired)
	_, err = NewReembedder(store, nil, l)
	assert.ErrorIs(t, err, ErrBatcherRequired)
	_, err = NewReembedder(store, batcher, nil)
	assert.ErrorIs(t, err, ErrLedgerRequired)
	_, err = NewReembedder(store, batcher, l, WithPageSize(0))
	assert.Error(t, err)
}

func TestReembedder_Run(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t, 10)
	embedder := mock.NewMockEmbedder(testDim)

	var progress bytes.Buffer
	r, err := NewReembedder(store, newBatcher(t, embedder), setupLedger(t),
		WithPageSize(4), WithProgress(&progress, 4))
	require.NoError(t, err)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.Entries)
	assert.Greater(t, summary.Elapsed, time.Duration(0))
	assert.Contains(t, progress.String(), "10/10 entries")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count, "entries are rewritten, not added")

	text := "shipment 7 of smartphones"
	matches, err := store.Query(ctx, mock.DeterministicVector(text, testDim), 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "entry-07", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Equal(t, text, matches[0].Text)
	assert.Equal(t, 7.0, matches[0].Metadata["index"])
}

func TestReembedder_EmptyCollection(t *testing.T) {
	embedder := mock.NewMockEmbedder(testDim)
	r, err := NewReembedder(setupStore(t, 0), newBatcher(t, embedder), setupLedger(t))
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Entries)
	assert.Zero(t, embedder.CallCount())
}

func TestReembedder_EmbeddingFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder(testDim)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("provider down")
	}

	r, err := NewReembedder(setupStore(t, 5), newBatcher(t, embedder), setupLedger(t), WithPageSize(2))
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrEmbeddingFailed)
	assert.Zero(t, summary.Entries)
}

func TestReembedder_Locked(t *testing.T) {
	l := setupLedger(t)
	unlock, err := l.Lock()
	require.NoError(t, err)
	defer unlock()

	r, err := NewReembedder(setupStore(t, 1), newBatcher(t, mock.NewMockEmbedder(testDim)), l)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, ledger.ErrLocked)
}

func TestReembedder_ReleasesLock(t *testing.T) {
	l := setupLedger(t)
	r, err := NewReembedder(setupStore(t, 2), newBatcher(t, mock.NewMockEmbedder(testDim)), l)
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.NoError(t, err)

	unlock, err := l.Lock()
	require.NoError(t, err)
	assert.NoError(t, unlock())
}
