// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/storage"
)

// Store implements storage.Store on BadgerDB.
// Entries are stored unit-normalized under collection-prefixed keys, so a
// query is a dot product over the collection's key range.
type Store struct {
	backend         *Backend
	upsertBatchSize int
	logger          *slog.Logger

	mu         sync.RWMutex
	collection *core.Collection

	// beforeBatch, when set, runs before each upsert transaction.
	beforeBatch func(start int) error
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithUpsertBatchSize sets the number of entries per write transaction.
// Default is storage.DefaultUpsertBatchSize.
func WithUpsertBatchSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.upsertBatchSize = size
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newStore(backend *Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("badger backend required")
	}
	s := &Store{
		backend:         backend,
		upsertBatchSize: storage.DefaultUpsertBatchSize,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "badger-store")
	return s, nil
}

// NewStore creates a Store on an open backend. The store takes ownership of
// the backend and closes it on Close.
//
// Returns storage.Store interface to enforce abstraction.
func NewStore(backend *Backend, opts ...Option) (storage.Store, error) {
	return newStore(backend, opts...)
}

// Open opens (or creates) a BadgerDB database in dir and wraps it in a Store.
func Open(dir string, opts ...Option) (storage.Store, error) {
	backend, err := OpenBackend(dir, false)
	if err != nil {
		return nil, err
	}
	s, err := newStore(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

// EnsureCollection creates or opens the named collection.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if name == "" || strings.Contains(name, ":") || dimension <= 0 {
		return fmt.Errorf("%w: name %q dimension %d", storage.ErrInvalidCollection, name, dimension)
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	var collection *core.Collection
	err := s.backend.Update(func(tx *badger.Txn) error {
		key := makeCollectionKey(name)
		item, err := tx.Get(key)
		switch {
		case err == nil:
			return item.Value(func(val []byte) error {
				var unmarshalErr error
				collection, unmarshalErr = storage.UnmarshalCollection(val)
				return unmarshalErr
			})
		case errors.Is(err, badger.ErrKeyNotFound):
			collection = &core.Collection{
				Name:      name,
				Dimension: dimension,
				Metric:    core.MetricCosine,
				CreatedAt: time.Now().UTC(),
			}
			s.logger.Info("creating collection", "name", name, "dimension", dimension)
			return tx.Set(key, storage.MarshalCollection(collection))
		default:
			return err
		}
	})
	if err != nil {
		return err
	}

	if collection.Dimension != dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, embedder produces %d",
			storage.ErrDimensionMismatch, name, collection.Dimension, dimension)
	}

	s.mu.Lock()
	s.collection = collection
	s.mu.Unlock()
	return nil
}

// Collection returns the collection opened by EnsureCollection.
func (s *Store) Collection() (*core.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return nil, storage.ErrCollectionNotReady
	}
	c := *s.collection
	return &c, nil
}

// Upsert writes entries in transactions of upsertBatchSize entries.
func (s *Store) Upsert(ctx context.Context, entries []*core.Entry) error {
	collection, err := s.Collection()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	prepared, err := storage.PrepareEntries(entries, collection.Dimension)
	if err != nil {
		return err
	}

	for start := 0; start < len(prepared); start += s.upsertBatchSize {
		end := min(start+s.upsertBatchSize, len(prepared))
		if err := ctx.Err(); err != nil {
			return &storage.UpsertError{Index: start, Err: err}
		}
		if s.beforeBatch != nil {
			if err := s.beforeBatch(start); err != nil {
				return &storage.UpsertError{Index: start, Err: err}
			}
		}

		err := s.backend.Update(func(tx *badger.Txn) error {
			for _, entry := range prepared[start:end] {
				if err := tx.Set(makeEntryKey(collection.Name, entry.ID), storage.MarshalEntry(entry)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("upsert batch failed", "start", start, "size", end-start, "err", err)
			return &storage.UpsertError{Index: start, Err: err}
		}
	}

	s.logger.Debug("upserted entries", "collection", collection.Name, "count", len(prepared))
	return nil
}

// Query scores every entry matching filter against vector.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter storage.Filter) ([]*core.Match, error) {
	collection, err := s.Collection()
	if err != nil {
		return nil, err
	}
	if err := storage.CheckQuery(vector, topK, collection.Dimension, filter); err != nil {
		return nil, err
	}

	query := storage.NormalizeVector(vector)
	var matches []*core.Match
	err = s.backend.ScanPrefix(makeEntryPrefix(collection.Name), true, func(_, val []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := storage.UnmarshalEntry(val)
		if err != nil {
			return err
		}
		if !filter.Match(entry.Metadata) {
			return nil
		}
		matches = append(matches, &core.Match{
			ID:       entry.ID,
			Score:    storage.DotProduct(query, entry.Vector),
			Text:     entry.Text,
			Metadata: entry.Metadata,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return storage.TopK(matches, topK), nil
}

// Count returns the number of entries in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	collection, err := s.Collection()
	if err != nil {
		return 0, err
	}
	count := 0
	err = s.backend.ScanPrefix(makeEntryPrefix(collection.Name), false, func(_, _ []byte) error {
		count++
		return nil
	})
	return count, err
}

// Scan pages through the collection in key order.
func (s *Store) Scan(ctx context.Context, after string, limit int) ([]*core.Entry, error) {
	collection, err := s.Collection()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	var entries []*core.Entry
	start := makeEntryKey(collection.Name, after)
	err = s.backend.ScanFrom(makeEntryPrefix(collection.Name), start, func(_, val []byte) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		entry, err := storage.UnmarshalEntry(val)
		if err != nil {
			return false, err
		}
		entry.Vector = nil
		entries = append(entries, entry)
		return len(entries) < limit, nil
	})
	return entries, err
}
