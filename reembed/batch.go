package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/embedding"
	"github.com/poiesic/tradevec/storage"
)

// BatchProcessor re-embeds a page of entries and writes them back.
type BatchProcessor struct {
	store   storage.VectorStore
	batcher *embedding.Batcher
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(store storage.VectorStore, batcher *embedding.Batcher) *BatchProcessor {
	return &BatchProcessor{
		store:   store,
		batcher: batcher,
	}
}

// Process embeds the texts of entries and upserts them with the new vectors.
// The entries passed in are not modified.
func (bp *BatchProcessor) Process(ctx context.Context, entries []*core.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}

	vectors, err := bp.batcher.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d entries: %w", len(entries), err)
	}

	updated := make([]*core.Entry, len(entries))
	for i, e := range entries {
		updated[i] = &core.Entry{
			ID:       e.ID,
			Vector:   vectors[i],
			Text:     e.Text,
			Metadata: e.Metadata,
		}
	}

	if err := bp.store.Upsert(ctx, updated); err != nil {
		return fmt.Errorf("write %d entries: %w", len(entries), err)
	}
	return nil
}
