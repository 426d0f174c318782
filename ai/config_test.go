package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	assert.Equal(t, "text-embedding-3-small", cfg.Model)
	assert.Equal(t, "none", cfg.APIKey)
	assert.Zero(t, cfg.Dimension)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithProvider(ProviderOllama),
			WithHost("http://ollama:11434"),
			WithModel("nomic-embed-text"),
			WithAPIKey("secret"),
			WithDimension(768),
		)

		assert.Equal(t, ProviderOllama, cfg.Provider)
		assert.Equal(t, "http://ollama:11434", cfg.Host)
		assert.Equal(t, "nomic-embed-text", cfg.Model)
		assert.Equal(t, "secret", cfg.APIKey)
		assert.Equal(t, 768, cfg.Dimension)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		provider ProviderKind
		host     string
		expected string
	}{
		{"openai already has /v1", ProviderOpenAI, "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"openai missing /v1", ProviderOpenAI, "http://localhost:11434", "http://localhost:11434/v1"},
		{"openai trailing slash", ProviderOpenAI, "http://localhost:11434/", "http://localhost:11434/v1"},
		{"openai trailing slash and v1", ProviderOpenAI, "http://localhost:11434/v1/", "http://localhost:11434/v1"},
		{"ollama strips /v1", ProviderOllama, "http://localhost:11434/v1", "http://localhost:11434"},
		{"ollama root untouched", ProviderOllama, "http://localhost:11434", "http://localhost:11434"},
		{"mock untouched", ProviderMock, "http://anything", "http://anything"},
		{"empty host", ProviderOpenAI, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.expected, cfg.Host)
		})
	}

	t.Run("provider is lowercased", func(t *testing.T) {
		cfg := &Config{Provider: "OpenAI"}
		cfg.Normalize()
		assert.Equal(t, ProviderOpenAI, cfg.Provider)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{
			Provider: ProviderOpenAI,
			Host:     "http://localhost:11434",
			Model:    "text-embedding-3-small",
		}

		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := &Config{Provider: "bedrock", Host: "http://x", Model: "m"}

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Provider")
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := &Config{Provider: ProviderOllama, Model: "nomic-embed-text"}

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Host")
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := &Config{Provider: ProviderOpenAI, Host: "http://localhost:11434/v1"}

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Model")
	})

	t.Run("negative dimension", func(t *testing.T) {
		cfg := NewConfig(WithDimension(-1))

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Dimension")
	})

	t.Run("mock needs only a dimension", func(t *testing.T) {
		cfg := &Config{Provider: ProviderMock, Dimension: 8}
		assert.NoError(t, cfg.Validate())

		cfg.Dimension = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestConfigValidate_Integration(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	require.NoError(t, cfg.Validate())
}

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s stubEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

func (s stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not used")
}

func TestDetectDimension(t *testing.T) {
	dim, err := DetectDimension(context.Background(), stubEmbedder{vector: make([]float32, 12)})
	require.NoError(t, err)
	assert.Equal(t, 12, dim)

	boom := errors.New("boom")
	_, err = DetectDimension(context.Background(), stubEmbedder{err: boom})
	assert.ErrorIs(t, err, boom)

	_, err = DetectDimension(context.Background(), stubEmbedder{})
	assert.Error(t, err)
}
