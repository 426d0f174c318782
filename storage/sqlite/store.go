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


package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/storage"
)

// FileName is the database file created inside the store directory.
const FileName = "tradevec.db"

// Store implements storage.Store on SQLite.
type Store struct {
	db              *sql.DB
	path            string
	upsertBatchSize int
	logger          *slog.Logger

	mu         sync.RWMutex
	collection *core.Collection
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithUpsertBatchSize sets the number of entries per write transaction.
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

// Open opens (or creates) the database file inside dir.
//
// Returns storage.Store interface to enforce abstraction.
func Open(dir string, opts ...Option) (storage.Store, error) {
	return open(dir, opts...)
}

func open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dir, FileName)

	// WAL mode for better concurrency between the ingest and search commands
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	s := &Store{
		db:              db,
		path:            dbPath,
		upsertBatchSize: storage.DefaultUpsertBatchSize,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sqlite-store")
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureCollection creates or opens the named collection.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if name == "" || dimension <= 0 {
		return fmt.Errorf("%w: name %q dimension %d", storage.ErrInvalidCollection, name, dimension)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, metric, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`,
		name, dimension, core.MetricCosine, time.Now().UTC().UnixMicro())
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	var (
		collection core.Collection
		createdAt  int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT name, dimension, metric, created_at FROM collections WHERE name = ?`, name,
	).Scan(&collection.Name, &collection.Dimension, &collection.Metric, &createdAt)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	collection.CreatedAt = time.UnixMicro(createdAt).UTC()

	if collection.Dimension != dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, embedder produces %d",
			storage.ErrDimensionMismatch, name, collection.Dimension, dimension)
	}

	s.mu.Lock()
	s.collection = &collection
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
		if err := s.upsertBatch(ctx, collection.Name, prepared[start:end]); err != nil {
			s.logger.Error("upsert batch failed", "start", start, "size", end-start, "err", err)
			return &storage.UpsertError{Index: start, Err: err}
		}
	}
	return nil
}

func (s *Store) upsertBatch(ctx context.Context, collection string, entries []*core.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertEntrySQL)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, e.ID, storage.MarshalVector(e.Vector), e.Text, string(metadata)); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Query scores every entry of the collection matching filter.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter storage.Filter) ([]*core.Match, error) {
	collection, err := s.Collection()
	if err != nil {
		return nil, err
	}
	if err := storage.CheckQuery(vector, topK, collection.Dimension, filter); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vector, text, metadata FROM entries WHERE collection = ?`, collection.Name)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	query := storage.NormalizeVector(vector)
	var matches []*core.Match
	for rows.Next() {
		var (
			id, text, metadataJSON string
			blob                   []byte
		)
		if err := rows.Scan(&id, &blob, &text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		var metadata core.Metadata
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata of %s: %w", storage.ErrSerializationFailed, id, err)
		}
		if !filter.Match(metadata) {
			continue
		}

		stored, err := storage.UnmarshalVector(blob)
		if err != nil {
			return nil, err
		}
		matches = append(matches, &core.Match{
			ID:       id,
			Score:    storage.DotProduct(query, stored),
			Text:     text,
			Metadata: metadata,
		})
	}
	if err := rows.Err(); err != nil {
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
	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE collection = ?`, collection.Name).Scan(&count)
	return count, err
}

// Scan pages through the collection by primary key.
func (s *Store) Scan(ctx context.Context, after string, limit int) ([]*core.Entry, error) {
	collection, err := s.Collection()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, metadata FROM entries WHERE collection = ? AND id > ? ORDER BY id LIMIT ?`,
		collection.Name, after, limit)
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	defer rows.Close()

	var entries []*core.Entry
	for rows.Next() {
		var (
			e            core.Entry
			metadataJSON string
		)
		if err := rows.Scan(&e.ID, &e.Text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &e.Metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata of %s: %w", storage.ErrSerializationFailed, e.ID, err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Record persists a file commit, replacing any earlier record for the name.
func (s *Store) Record(ctx context.Context, commit *core.FileCommit) error {
	if commit == nil || commit.Name == "" {
		return errors.New("file commit requires a name")
	}
	if commit.CommittedAt.IsZero() {
		commit.CommittedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, upsertCommitSQL,
		commit.Name, string(commit.Kind), commit.Records, commit.Dropped, commit.Vectors,
		commit.Digest, commit.CommittedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("record commit: %w", err)
	}
	return nil
}

// List returns every recorded commit, oldest first.
func (s *Store) List(ctx context.Context) ([]*core.FileCommit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, kind, records, dropped, vectors, digest, committed_at
		 FROM commits ORDER BY committed_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()

	var commits []*core.FileCommit
	for rows.Next() {
		var (
			c           core.FileCommit
			kind        string
			committedAt int64
		)
		if err := rows.Scan(&c.Name, &kind, &c.Records, &c.Dropped, &c.Vectors, &c.Digest, &committedAt); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		c.Kind = core.SourceKind(kind)
		c.CommittedAt = time.UnixMicro(committedAt).UTC()
		commits = append(commits, &c)
	}
	return commits, rows.Err()
}
