package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/tradevec/ai"
	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/storage"
)

// DefaultTopK is the number of matches returned when topK is not positive.
const DefaultTopK = 5

// Searcher embeds queries and looks up the nearest stored entries.
type Searcher struct {
	store    storage.VectorStore
	embedder ai.Embedder
	minScore float32
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinScore drops matches whose cosine similarity is below score.
// Default is no threshold.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		s.minScore = score
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		minScore: -1,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search returns up to topK entries closest to query that satisfy filter,
// most similar first.
func (s *Searcher) Search(ctx context.Context, query string, topK int, filter storage.Filter) ([]*core.Match, error) {
	return s.SearchWithMonitor(ctx, query, topK, filter, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, topK int, filter storage.Filter, monitor SearchMonitor) ([]*core.Match, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	monitor.Start(query)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(vector)

	matches, err := s.store.Query(ctx, vector, topK, filter)
	if err != nil {
		s.logger.Error("error querying for similar entries", "err", err)
		return nil, err
	}
	monitor.AfterQuery(matches)

	results := make([]*core.Match, 0, len(matches))
	for _, m := range matches {
		if m.Score < s.minScore {
			continue
		}
		results = append(results, m)
	}
	monitor.Finish(results)

	s.logger.Debug("search complete", "query", query, "matches", len(results))
	return results, nil
}
