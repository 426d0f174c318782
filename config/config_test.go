package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/tradevec/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, ai.ProviderOpenAI, c.Embedding.Provider)
	assert.Equal(t, "http://localhost:11434/v1", c.Embedding.Host)
	assert.Equal(t, "text-embedding-3-small", c.Embedding.Model)
	assert.Zero(t, c.Embedding.Dimension)
	assert.Equal(t, 100, c.Embedding.BatchSize)
	assert.Equal(t, 1, c.Embedding.Concurrency)
	assert.Equal(t, 3, c.Embedding.MaxRetries)
	assert.Equal(t, time.Second, c.Embedding.RetryDelay.Duration)
	assert.Zero(t, c.Embedding.RequestsPerSecond)
	assert.Equal(t, BackendBadger, c.Store.Backend)
	assert.Equal(t, filepath.Join("data", "vectors"), c.Store.Path)
	assert.Equal(t, "trade-intelligence", c.Store.Collection)
	assert.Equal(t, 100, c.Store.UpsertBatchSize)
	assert.Equal(t, filepath.Join("data", "raw"), c.Paths.RawDir)
	assert.Equal(t, filepath.Join("data", "processed"), c.Paths.ProcessedDir)

	require.NoError(t, c.Validate())
}

func TestNew_Options(t *testing.T) {
	c := New(
		WithProvider(ai.ProviderOllama),
		WithHost("http://ollama:11434"),
		WithModel("nomic-embed-text"),
		WithDimension(768),
		WithBatchSize(32),
		WithConcurrency(4),
		WithBackend(BackendSQLite),
		WithStorePath("/var/lib/tradevec"),
		WithCollection("test"),
		WithRawDir("/in"),
		WithProcessedDir("/done"),
		WithLogLevel("debug"),
	)

	assert.Equal(t, ai.ProviderOllama, c.Embedding.Provider)
	assert.Equal(t, 768, c.Embedding.Dimension)
	assert.Equal(t, 32, c.Embedding.BatchSize)
	assert.Equal(t, 4, c.Embedding.Concurrency)
	assert.Equal(t, BackendSQLite, c.Store.Backend)
	assert.Equal(t, "/var/lib/tradevec", c.Store.Path)
	assert.Equal(t, "test", c.Store.Collection)
	assert.Equal(t, "/in", c.Paths.RawDir)
	assert.Equal(t, "/done", c.Paths.ProcessedDir)
	assert.Equal(t, "debug", c.LogLevel)
	require.NoError(t, c.Validate())

	aiConfig := c.AI()
	assert.Equal(t, ai.ProviderOllama, aiConfig.Provider)
	assert.Equal(t, "nomic-embed-text", aiConfig.Model)
	assert.Equal(t, 768, aiConfig.Dimension)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		edit func(*Config)
	}{
		{name: "unknown provider", opts: []Option{WithProvider("huggingface")}},
		{name: "mock without dimension", opts: []Option{WithProvider(ai.ProviderMock)}},
		{name: "zero batch size", opts: []Option{WithBatchSize(0)}},
		{name: "zero concurrency", opts: []Option{WithConcurrency(0)}},
		{name: "zero retries", edit: func(c *Config) { c.Embedding.MaxRetries = 0 }},
		{name: "negative retry delay", edit: func(c *Config) { c.Embedding.RetryDelay.Duration = -time.Second }},
		{name: "negative rate", edit: func(c *Config) { c.Embedding.RequestsPerSecond = -1 }},
		{name: "unknown backend", opts: []Option{WithBackend("pinecone")}},
		{name: "postgres without dsn", opts: []Option{WithBackend(BackendPostgres)}},
		{name: "badger without path", opts: []Option{WithStorePath("")}},
		{name: "empty collection", opts: []Option{WithCollection("")}},
		{name: "zero upsert batch", edit: func(c *Config) { c.Store.UpsertBatchSize = 0 }},
		{name: "empty raw dir", opts: []Option{WithRawDir("")}},
		{name: "same directories", opts: []Option{WithRawDir("data/in"), WithProcessedDir("data/in/")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.opts...)
			if tt.edit != nil {
				tt.edit(c)
			}
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("postgres with dsn", func(t *testing.T) {
		c := New(WithBackend(BackendPostgres), WithDSN("postgres://localhost/tradevec"), WithStorePath(""))
		assert.NoError(t, c.Validate())
	})

	t.Run("mock with dimension", func(t *testing.T) {
		c := New(WithProvider(ai.ProviderMock), WithDimension(16))
		assert.NoError(t, c.Validate())
	})
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradevec.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "warn"

[embedding]
provider = "ollama"
host = "http://gpu-box:11434"
model = "nomic-embed-text"
batch_size = 64
retry_delay = "250ms"
requests_per_second = 5.5

[store]
backend = "sqlite"
path = "/srv/vectors"

[paths]
raw_dir = "/srv/raw"
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, ai.ProviderOllama, c.Embedding.Provider)
	assert.Equal(t, "http://gpu-box:11434", c.Embedding.Host)
	assert.Equal(t, 64, c.Embedding.BatchSize)
	assert.Equal(t, 250*time.Millisecond, c.Embedding.RetryDelay.Duration)
	assert.Equal(t, 5.5, c.Embedding.RequestsPerSecond)
	assert.Equal(t, BackendSQLite, c.Store.Backend)
	assert.Equal(t, "/srv/vectors", c.Store.Path)
	assert.Equal(t, "/srv/raw", c.Paths.RawDir)

	// Untouched keys keep their defaults.
	assert.Equal(t, 3, c.Embedding.MaxRetries)
	assert.Equal(t, "trade-intelligence", c.Store.Collection)
	assert.Equal(t, filepath.Join("data", "processed"), c.Paths.ProcessedDir)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[embedding\nprovider="), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[embedding]\nretry_delay = \"soon\"\n"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestLoad_Environment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradevec.toml")
	require.NoError(t, os.WriteFile(path, []byte("[embedding]\nbatch_size = 64\n"), 0o644))

	t.Setenv("TRADEVEC_EMBEDDING_PROVIDER", "Mock")
	t.Setenv("TRADEVEC_EMBEDDING_DIMENSION", "32")
	t.Setenv("TRADEVEC_BATCH_SIZE", "10")
	t.Setenv("TRADEVEC_RETRY_DELAY", "2s")
	t.Setenv("TRADEVEC_STORE_BACKEND", "postgres")
	t.Setenv("TRADEVEC_STORE_DSN", "")
	t.Setenv("DATABASE_URL", "postgres://db/tradevec")
	t.Setenv("TRADEVEC_EMBEDDING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TRADEVEC_RAW_DIR", "/intake")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ai.ProviderMock, c.Embedding.Provider)
	assert.Equal(t, 32, c.Embedding.Dimension)
	assert.Equal(t, 10, c.Embedding.BatchSize, "environment overrides the file")
	assert.Equal(t, 2*time.Second, c.Embedding.RetryDelay.Duration)
	assert.Equal(t, BackendPostgres, c.Store.Backend)
	assert.Equal(t, "postgres://db/tradevec", c.Store.DSN)
	assert.Equal(t, "sk-test", c.Embedding.APIKey)
	assert.Equal(t, "/intake", c.Paths.RawDir)
	require.NoError(t, c.Validate())
}

func TestLoad_EnvironmentParseError(t *testing.T) {
	t.Setenv("TRADEVEC_CONCURRENCY", "many")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "TRADEVEC_CONCURRENCY")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TRADEVEC_COLLECTION=from-dotenv\nTRADEVEC_LOG_LEVEL=debug\n"), 0o644))

	t.Setenv("TRADEVEC_COLLECTION", "")
	os.Unsetenv("TRADEVEC_COLLECTION")
	t.Setenv("TRADEVEC_LOG_LEVEL", "error")

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", c.Store.Collection)
	assert.Equal(t, "error", c.LogLevel, "existing variables win over .env")
}

func TestTOML_MasksAPIKey(t *testing.T) {
	c := Default()
	c.Embedding.APIKey = "sk-secret"

	data, err := c.TOML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "***")
	assert.NotContains(t, string(data), "sk-secret")
	assert.Equal(t, "sk-secret", c.Embedding.APIKey, "original is untouched")
	assert.Contains(t, string(data), "retry_delay")
	assert.Contains(t, string(data), "1s")
}
