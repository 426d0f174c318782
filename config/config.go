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


package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/poiesic/tradevec/ai"
)

// Backend selects the vector store implementation.
type Backend string

const (
	BackendBadger   Backend = "badger"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Backends lists every recognized backend.
var Backends = []Backend{BackendBadger, BackendSQLite, BackendPostgres}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Duration is a time.Duration written as a Go duration string ("1s", "250ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete process configuration.
type Config struct {
	Embedding EmbeddingConfig `toml:"embedding"`
	Store     StoreConfig     `toml:"store"`
	Paths     PathsConfig     `toml:"paths"`
	LogLevel  string          `toml:"log_level"`
}

// EmbeddingConfig configures the provider and the batcher in front of it.
type EmbeddingConfig struct {
	Provider          ai.ProviderKind `toml:"provider"`
	Host              string          `toml:"host"`
	Model             string          `toml:"model"`
	APIKey            string          `toml:"api_key"`
	Dimension         int             `toml:"dimension"` // 0 asks the provider
	BatchSize         int             `toml:"batch_size"`
	Concurrency       int             `toml:"concurrency"`
	MaxRetries        int             `toml:"max_retries"`
	RetryDelay        Duration        `toml:"retry_delay"`
	RequestsPerSecond float64         `toml:"requests_per_second"` // 0 is unlimited
}

// StoreConfig configures the vector store.
type StoreConfig struct {
	Backend         Backend `toml:"backend"`
	Path            string  `toml:"path"` // directory for badger and sqlite
	DSN             string  `toml:"dsn"`  // connection string for postgres
	Collection      string  `toml:"collection"`
	UpsertBatchSize int     `toml:"upsert_batch_size"`
}

// PathsConfig locates the intake directories.
type PathsConfig struct {
	RawDir       string `toml:"raw_dir"`
	ProcessedDir string `toml:"processed_dir"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:    aiDefaults.Provider,
			Host:        aiDefaults.Host,
			Model:       aiDefaults.Model,
			APIKey:      aiDefaults.APIKey,
			BatchSize:   100,
			Concurrency: 1,
			MaxRetries:  3,
			RetryDelay:  Duration{time.Second},
		},
		Store: StoreConfig{
			Backend:         BackendBadger,
			Path:            filepath.Join("data", "vectors"),
			Collection:      "trade-intelligence",
			UpsertBatchSize: 100,
		},
		Paths: PathsConfig{
			RawDir:       filepath.Join("data", "raw"),
			ProcessedDir: filepath.Join("data", "processed"),
		},
		LogLevel: "info",
	}
}

// Option is a functional option applied on top of loaded values.
type Option func(*Config)

// New returns the defaults with opts applied.
func New(opts ...Option) *Config {
	c := Default()
	c.Apply(opts...)
	return c
}

// Apply applies opts to c.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithProvider sets the embedding provider.
func WithProvider(kind ai.ProviderKind) Option {
	return func(c *Config) { c.Embedding.Provider = kind }
}

// WithHost sets the embedding service URL.
func WithHost(host string) Option {
	return func(c *Config) { c.Embedding.Host = host }
}

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(c *Config) { c.Embedding.Model = model }
}

// WithDimension fixes the embedding length instead of probing.
func WithDimension(dim int) Option {
	return func(c *Config) { c.Embedding.Dimension = dim }
}

// WithBatchSize sets the number of texts per provider call.
func WithBatchSize(size int) Option {
	return func(c *Config) { c.Embedding.BatchSize = size }
}

// WithConcurrency sets the number of batches embedded in parallel.
func WithConcurrency(n int) Option {
	return func(c *Config) { c.Embedding.Concurrency = n }
}

// WithBackend sets the vector store backend.
func WithBackend(backend Backend) Option {
	return func(c *Config) { c.Store.Backend = backend }
}

// WithStorePath sets the directory of an embedded store.
func WithStorePath(path string) Option {
	return func(c *Config) { c.Store.Path = path }
}

// WithDSN sets the postgres connection string.
func WithDSN(dsn string) Option {
	return func(c *Config) { c.Store.DSN = dsn }
}

// WithCollection sets the collection name.
func WithCollection(name string) Option {
	return func(c *Config) { c.Store.Collection = name }
}

// WithRawDir sets the pending file directory.
func WithRawDir(dir string) Option {
	return func(c *Config) { c.Paths.RawDir = dir }
}

// WithProcessedDir sets the committed file directory.
func WithProcessedDir(dir string) Option {
	return func(c *Config) { c.Paths.ProcessedDir = dir }
}

// WithLogLevel sets the log level name.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// AI returns the provider configuration.
func (c *Config) AI() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.Embedding.Provider),
		ai.WithHost(c.Embedding.Host),
		ai.WithModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithDimension(c.Embedding.Dimension),
	)
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.AI().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	e := c.Embedding
	switch {
	case e.BatchSize <= 0:
		return invalid("embedding.batch_size must be positive, got %d", e.BatchSize)
	case e.Concurrency <= 0:
		return invalid("embedding.concurrency must be positive, got %d", e.Concurrency)
	case e.MaxRetries <= 0:
		return invalid("embedding.max_retries must be positive, got %d", e.MaxRetries)
	case e.RetryDelay.Duration < 0:
		return invalid("embedding.retry_delay cannot be negative")
	case e.RequestsPerSecond < 0:
		return invalid("embedding.requests_per_second cannot be negative")
	}

	s := c.Store
	if !slices.Contains(Backends, s.Backend) {
		return invalid("unknown store.backend %q", s.Backend)
	}
	if s.Backend == BackendPostgres && s.DSN == "" {
		return invalid("store.dsn is required for the postgres backend")
	}
	if s.Backend != BackendPostgres && s.Path == "" {
		return invalid("store.path is required for the %s backend", s.Backend)
	}
	if s.Collection == "" {
		return invalid("store.collection is required")
	}
	if s.UpsertBatchSize <= 0 {
		return invalid("store.upsert_batch_size must be positive, got %d", s.UpsertBatchSize)
	}

	p := c.Paths
	if p.RawDir == "" || p.ProcessedDir == "" {
		return invalid("paths.raw_dir and paths.processed_dir are required")
	}
	if filepath.Clean(p.RawDir) == filepath.Clean(p.ProcessedDir) {
		return invalid("paths.raw_dir and paths.processed_dir must differ")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
