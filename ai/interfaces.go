package ai

import (
	"context"
	"fmt"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in one call.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if the call fails as a whole.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// detectText is embedded once to discover a provider's vector length.
const detectText = "dimension check"

// DetectDimension embeds a fixed text and returns the vector length.
func DetectDimension(ctx context.Context, embedder Embedder) (int, error) {
	vector, err := embedder.EmbedText(ctx, detectText)
	if err != nil {
		return 0, fmt.Errorf("detect embedding dimension: %w", err)
	}
	if len(vector) == 0 {
		return 0, fmt.Errorf("detect embedding dimension: provider returned an empty vector")
	}
	return len(vector), nil
}
