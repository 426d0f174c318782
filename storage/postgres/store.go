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


package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/storage"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS tradevec_collections (
	name       TEXT PRIMARY KEY,
	dimension  INTEGER NOT NULL,
	metric     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tradevec_commits (
	name         TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	records      INTEGER NOT NULL,
	dropped      INTEGER NOT NULL,
	vectors      INTEGER NOT NULL,
	digest       TEXT NOT NULL,
	committed_at TIMESTAMPTZ NOT NULL
);
`

// Store implements storage.Store on PostgreSQL + pgvector.
type Store struct {
	db              *sql.DB
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

// Open connects to dsn, checks the connection and applies the schema.
//
// Returns storage.Store interface to enforce abstraction.
func Open(ctx context.Context, dsn string, opts ...Option) (storage.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{
		db:              db,
		upsertBatchSize: storage.DefaultUpsertBatchSize,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "postgres-store")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureCollection creates or opens the named collection and its table.
func (s *Store) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if name == "" || dimension <= 0 {
		return fmt.Errorf("%w: name %q dimension %d", storage.ErrInvalidCollection, name, dimension)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tradevec_collections (name, dimension, metric) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`, name, dimension, core.MetricCosine)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	var collection core.Collection
	err = s.db.QueryRowContext(ctx,
		`SELECT name, dimension, metric, created_at FROM tradevec_collections WHERE name = $1`, name,
	).Scan(&collection.Name, &collection.Dimension, &collection.Metric, &collection.CreatedAt)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	if collection.Dimension != dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, embedder produces %d",
			storage.ErrDimensionMismatch, name, collection.Dimension, dimension)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id       TEXT PRIMARY KEY,
		embedding vector(%d) NOT NULL,
		text     TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'
	)`, tableName(name), dimension)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create entry table: %w", err)
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

	query := fmt.Sprintf(`INSERT INTO %s (id, embedding, text, metadata)
		VALUES ($1, $2::vector, $3, $4::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			text = EXCLUDED.text,
			metadata = EXCLUDED.metadata`, tableName(collection.Name))

	for start := 0; start < len(prepared); start += s.upsertBatchSize {
		end := min(start+s.upsertBatchSize, len(prepared))
		if err := s.upsertBatch(ctx, query, prepared[start:end]); err != nil {
			s.logger.Error("upsert batch failed", "start", start, "size", end-start, "err", err)
			return &storage.UpsertError{Index: start, Err: err}
		}
	}
	return nil
}

func (s *Store) upsertBatch(ctx context.Context, query string, entries []*core.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, vectorLiteral(e.Vector), e.Text, string(metadata)); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Query ranks entries by cosine distance inside the database.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter storage.Filter) ([]*core.Match, error) {
	collection, err := s.Collection()
	if err != nil {
		return nil, err
	}
	if err := storage.CheckQuery(vector, topK, collection.Dimension, filter); err != nil {
		return nil, err
	}

	where, args, err := whereClause(filter, 3)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, text, metadata, 1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		WHERE %s
		ORDER BY embedding <=> $1::vector, id
		LIMIT $2`, tableName(collection.Name), where)

	rows, err := s.db.QueryContext(ctx, query, append([]any{vectorLiteral(vector), topK}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var matches []*core.Match
	for rows.Next() {
		var (
			m        core.Match
			metadata []byte
			score    float64
		)
		if err := rows.Scan(&m.ID, &m.Text, &metadata, &score); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata of %s: %w", storage.ErrSerializationFailed, m.ID, err)
		}
		m.Score = float32(score)
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

// Count returns the number of entries in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	collection, err := s.Collection()
	if err != nil {
		return 0, err
	}
	var count int
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, tableName(collection.Name))).Scan(&count)
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

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, text, metadata FROM %s WHERE id > $1 ORDER BY id LIMIT $2`, tableName(collection.Name)),
		after, limit)
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	defer rows.Close()

	var entries []*core.Entry
	for rows.Next() {
		var (
			e        core.Entry
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.Text, &metadata); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tradevec_commits (name, kind, records, dropped, vectors, digest, committed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			kind = EXCLUDED.kind,
			records = EXCLUDED.records,
			dropped = EXCLUDED.dropped,
			vectors = EXCLUDED.vectors,
			digest = EXCLUDED.digest,
			committed_at = EXCLUDED.committed_at`,
		commit.Name, string(commit.Kind), commit.Records, commit.Dropped, commit.Vectors, commit.Digest, commit.CommittedAt)
	if err != nil {
		return fmt.Errorf("record commit: %w", err)
	}
	return nil
}

// List returns every recorded commit, oldest first.
func (s *Store) List(ctx context.Context) ([]*core.FileCommit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, records, dropped, vectors, digest, committed_at
		FROM tradevec_commits ORDER BY committed_at, name`)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()

	var commits []*core.FileCommit
	for rows.Next() {
		var (
			c    core.FileCommit
			kind string
		)
		if err := rows.Scan(&c.Name, &kind, &c.Records, &c.Dropped, &c.Vectors, &c.Digest, &c.CommittedAt); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		c.Kind = core.SourceKind(kind)
		c.CommittedAt = c.CommittedAt.UTC()
		commits = append(commits, &c)
	}
	return commits, rows.Err()
}
