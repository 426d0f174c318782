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


// Package tradevec wires an embedding provider, a vector store and the
// intake ledger together from a config.Config.
package tradevec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/tradevec/ai"
	"github.com/poiesic/tradevec/ai/mock"
	"github.com/poiesic/tradevec/ai/ollama"
	"github.com/poiesic/tradevec/ai/openai"
	"github.com/poiesic/tradevec/config"
	"github.com/poiesic/tradevec/embedding"
	"github.com/poiesic/tradevec/ingestion"
	"github.com/poiesic/tradevec/ledger"
	"github.com/poiesic/tradevec/reembed"
	"github.com/poiesic/tradevec/search"
	"github.com/poiesic/tradevec/storage"
	"github.com/poiesic/tradevec/storage/badger"
	"github.com/poiesic/tradevec/storage/postgres"
	"github.com/poiesic/tradevec/storage/sqlite"
)

type Database struct {
	config    *config.Config
	provider  ai.AIProvider
	store     storage.Store
	ledger    *ledger.Ledger
	batcher   *embedding.Batcher
	dimension int
	logger    *slog.Logger
}

// Option configures a Database.
type Option func(*databaseOptions)

type databaseOptions struct {
	provider ai.AIProvider
	store    storage.Store
	logger   *slog.Logger
}

// WithProvider uses provider instead of building one from the config.
// The Database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *databaseOptions) { o.provider = provider }
}

// WithStore uses store instead of opening the configured backend.
// The Database takes ownership and closes it.
func WithStore(store storage.Store) Option {
	return func(o *databaseOptions) { o.store = store }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *databaseOptions) { o.logger = logger }
}

// Open validates cfg, connects the provider and store, discovers the
// embedding dimension when the config leaves it at zero, and ensures the
// collection exists with that dimension.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	db := &Database{
		config: cfg,
		logger: options.logger.With("component", "database"),
	}

	provider := options.provider
	if provider == nil {
		var err error
		if provider, err = NewProvider(cfg.AI()); err != nil {
			return nil, err
		}
	}
	db.provider = provider

	db.dimension = cfg.Embedding.Dimension
	if db.dimension == 0 {
		dim, err := ai.DetectDimension(ctx, provider.Embedder())
		if err != nil {
			db.Close()
			return nil, err
		}
		db.logger.Info("detected embedding dimension", "dimension", dim, "model", cfg.Embedding.Model)
		db.dimension = dim
	}

	store := options.store
	if store == nil {
		var err error
		if store, err = OpenStore(ctx, cfg, options.logger); err != nil {
			db.Close()
			return nil, err
		}
	}
	db.store = store

	if err := store.EnsureCollection(ctx, cfg.Store.Collection, db.dimension); err != nil {
		db.Close()
		return nil, err
	}

	l, err := ledger.New(cfg.Paths.RawDir, cfg.Paths.ProcessedDir, ledger.WithLogger(options.logger))
	if err != nil {
		db.Close()
		return nil, err
	}
	db.ledger = l

	db.batcher, err = embedding.NewBatcher(provider.Embedder(),
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithConcurrency(cfg.Embedding.Concurrency),
		embedding.WithDimension(db.dimension),
		embedding.WithMaxRetries(cfg.Embedding.MaxRetries),
		embedding.WithRetryDelay(cfg.Embedding.RetryDelay.Duration),
		embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond),
		embedding.WithLogger(options.logger),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// NewProvider builds the embedding provider named by cfg.Provider.
func NewProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	case ai.ProviderOllama:
		return ollama.NewProvider(cfg)
	case ai.ProviderMock:
		return mock.NewMockProvider(cfg.Dimension), nil
	}
	return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
}

// OpenStore opens the vector store backend named by cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	s := cfg.Store
	switch s.Backend {
	case config.BackendBadger:
		return badger.Open(s.Path, badger.WithUpsertBatchSize(s.UpsertBatchSize), badger.WithLogger(logger))
	case config.BackendSQLite:
		return sqlite.Open(s.Path, sqlite.WithUpsertBatchSize(s.UpsertBatchSize), sqlite.WithLogger(logger))
	case config.BackendPostgres:
		return postgres.Open(ctx, s.DSN, postgres.WithUpsertBatchSize(s.UpsertBatchSize), postgres.WithLogger(logger))
	}
	return nil, fmt.Errorf("unsupported store backend %q", s.Backend)
}

// Close releases the batcher, the store and the provider.
func (db *Database) Close() error {
	if db.batcher != nil {
		db.batcher.Release()
	}

	var errs []error
	if db.store != nil {
		if err := db.store.Close(); err != nil {
			db.logger.Error("error closing vector store", "err", err)
			errs = append(errs, err)
		}
	}
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (db *Database) Config() *config.Config {
	return db.config
}

func (db *Database) Store() storage.Store {
	return db.store
}

func (db *Database) Ledger() *ledger.Ledger {
	return db.ledger
}

// Dimension returns the embedding length of the collection.
func (db *Database) Dimension() int {
	return db.dimension
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.store, db.batcher, db.ledger, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.store, db.provider.Embedder(), opts...)
}

// NewReembedder returns a reembedder that rewrites the collection with the
// database's embedding batcher.
func (db *Database) NewReembedder(opts ...reembed.Option) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(db.store, db.batcher, db.ledger, opts...)
}
