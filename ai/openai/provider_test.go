package openai

import (
	"testing"

	"github.com/poiesic/tradevec/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		provider, err := NewProvider(ai.DefaultConfig())
		require.NoError(t, err)
		defer provider.Close()

		assert.NotNil(t, provider.Embedder())
	})

	t.Run("host is normalized", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithHost("http://localhost:8080/"))
		_, err := NewProvider(cfg)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/v1", cfg.Host)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewProvider(&ai.Config{Provider: ai.ProviderOpenAI})
		assert.Error(t, err)
	})
}
