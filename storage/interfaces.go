package storage

import (
	"context"

	"github.com/poiesic/tradevec/core"
)

// DefaultUpsertBatchSize is the number of entries written per transaction.
const DefaultUpsertBatchSize = 100

// VectorStore persists embedded entries and answers similarity queries.
// Implementations must be thread-safe and support concurrent access.
type VectorStore interface {
	// EnsureCollection creates the named collection with the given dimension
	// and cosine similarity, or opens it when it already exists. An existing
	// collection with a different dimension yields ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, name string, dimension int) error

	// Upsert inserts or overwrites entries by ID.
	// A partial failure returns an *UpsertError.
	Upsert(ctx context.Context, entries []*core.Entry) error

	// Query returns up to topK entries matching filter, most similar first.
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]*core.Match, error)

	// Count returns the number of entries in the collection.
	Count(ctx context.Context) (int, error)

	// Scan returns up to limit entries whose IDs sort after the given ID, in
	// ID order. An empty after starts at the beginning. Vectors are not loaded.
	Scan(ctx context.Context, after string, limit int) ([]*core.Entry, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// Journal records raw files committed by the ingestion pipeline.
type Journal interface {
	// Record appends or replaces the commit for commit.Name.
	Record(ctx context.Context, commit *core.FileCommit) error

	// List returns every recorded commit ordered by CommittedAt, oldest first.
	List(ctx context.Context) ([]*core.FileCommit, error)
}

// Store is the full storage surface each backend provides.
type Store interface {
	VectorStore
	Journal

	// Collection returns the collection opened by EnsureCollection.
	Collection() (*core.Collection, error)
}
