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


package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/tradevec/ai"
	"golang.org/x/time/rate"
)

const (
	// DefaultBatchSize is the number of texts sent in one provider call.
	DefaultBatchSize = 100

	// DefaultMaxRetries is the number of attempts for a single-item fallback.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the delay before the second single-item attempt.
	DefaultRetryDelay = time.Second
)

// Batcher embeds ordered lists of texts in provider-sized batches.
// It is safe for concurrent use.
type Batcher struct {
	embedder    ai.Embedder
	batchSize   int
	concurrency int
	dimension   int
	maxRetries  int
	retryDelay  time.Duration
	limiter     *rate.Limiter
	batchPool   *ants.Pool
	itemPool    *ants.Pool
	logger      *slog.Logger
}

// Option configures a Batcher.
type Option func(*Batcher) error

// WithBatchSize sets the number of texts per provider call.
// Default is 100.
func WithBatchSize(size int) Option {
	return func(b *Batcher) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		b.batchSize = size
		return nil
	}
}

// WithConcurrency sets how many batches, and how many fallback items of one
// batch, may be in flight at once. Values below 2 keep everything sequential.
func WithConcurrency(n int) Option {
	return func(b *Batcher) error {
		if n < 1 {
			n = 1
		}
		b.concurrency = n
		return nil
	}
}

// WithDimension makes the batcher reject vectors whose length is not dim.
// Zero accepts any length as long as the call is consistent.
func WithDimension(dim int) Option {
	return func(b *Batcher) error {
		b.dimension = dim
		return nil
	}
}

// WithMaxRetries sets the number of attempts for each single-item fallback.
func WithMaxRetries(n int) Option {
	return func(b *Batcher) error {
		if n < 1 {
			return ErrInvalidMaxAttempts
		}
		b.maxRetries = n
		return nil
	}
}

// WithRetryDelay sets the base delay for single-item backoff.
func WithRetryDelay(d time.Duration) Option {
	return func(b *Batcher) error {
		b.retryDelay = d
		return nil
	}
}

// WithRateLimit caps provider calls per second. Zero disables limiting.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(b *Batcher) error {
		if requestsPerSecond <= 0 {
			b.limiter = nil
			return nil
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Batcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatcher creates a batcher around embedder.
func NewBatcher(embedder ai.Embedder, opts ...Option) (*Batcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	b := &Batcher{
		embedder:    embedder,
		batchSize:   DefaultBatchSize,
		concurrency: 1,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "embedding-batcher")

	if b.concurrency > 1 {
		// Batches and fallback items get separate pools so a batch waiting on
		// its fallback items never starves them of workers.
		batchPool, err := ants.NewPool(b.concurrency)
		if err != nil {
			return nil, err
		}
		itemPool, err := ants.NewPool(b.concurrency)
		if err != nil {
			batchPool.Release()
			return nil, err
		}
		b.batchPool = batchPool
		b.itemPool = itemPool
	}

	return b, nil
}

// BatchSize returns the number of texts per provider call.
func (b *Batcher) BatchSize() int {
	return b.batchSize
}

// EmbedBatch returns one vector per text, in input order.
// An error wrapping ErrEmbeddingFailed means at least one text could not be
// embedded; no vectors are returned in that case.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	tasks := make([]func(context.Context) error, 0, (len(texts)+b.batchSize-1)/b.batchSize)
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		tasks = append(tasks, func(ctx context.Context) error {
			return b.embedRange(ctx, texts[start:end], vectors[start:end], start)
		})
	}

	if err := b.run(ctx, b.batchPool, tasks); err != nil {
		return nil, err
	}

	if err := b.checkDimensions(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Release releases the worker pools.
// The batcher should not be used after calling Release.
func (b *Batcher) Release() {
	if b.batchPool != nil {
		b.batchPool.Release()
	}
	if b.itemPool != nil {
		b.itemPool.Release()
	}
}

// embedRange embeds one contiguous batch into out, falling back to single
// items when the batch call is unusable.
func (b *Batcher) embedRange(ctx context.Context, texts []string, out [][]float32, offset int) error {
	result, err := b.embedTexts(ctx, texts)
	if err == nil {
		copy(out, result)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	b.logger.Warn("batch embedding failed, falling back to single items",
		"offset", offset, "size", len(texts), "err", err)

	tasks := make([]func(context.Context) error, len(texts))
	for i := range texts {
		tasks[i] = func(ctx context.Context) error {
			vector, err := b.embedOne(ctx, texts[i])
			if err != nil {
				return fmt.Errorf("%w: text %d: %w", ErrEmbeddingFailed, offset+i, err)
			}
			out[i] = vector
			return nil
		}
	}
	return b.run(ctx, b.itemPool, tasks)
}

// embedTexts makes one batch call and checks its shape.
func (b *Batcher) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	result, err := b.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(result) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(result))
	}
	for i, vector := range result {
		if len(vector) == 0 {
			return nil, fmt.Errorf("empty vector at position %d", i)
		}
	}
	return result, nil
}

// embedOne embeds a single text with bounded retries.
func (b *Batcher) embedOne(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		if err := b.wait(ctx); err != nil {
			return err
		}
		v, err := b.embedder.EmbedText(ctx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return errors.New("empty vector")
		}
		vector = v
		return nil
	}, b.maxRetries, b.retryDelay)
	return vector, err
}

func (b *Batcher) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

// run executes tasks on pool, or inline when pool is nil, and returns the
// first error. Remaining tasks observe a canceled context once one fails.
func (b *Batcher) run(ctx context.Context, pool *ants.Pool, tasks []func(context.Context) error) error {
	if pool == nil {
		for _, task := range tasks {
			if err := task(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for _, task := range tasks {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := task(ctx); err != nil {
				fail(err)
			}
		}); err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	return firstErr
}

func (b *Batcher) checkDimensions(vectors [][]float32) error {
	want := b.dimension
	if want == 0 {
		want = len(vectors[0])
	}
	for i, vector := range vectors {
		if len(vector) != want {
			return fmt.Errorf("%w: vector %d has length %d, expected %d", ErrDimensionMismatch, i, len(vector), want)
		}
	}
	return nil
}
