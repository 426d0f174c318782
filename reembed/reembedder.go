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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/embedding"
	"github.com/poiesic/tradevec/ledger"
	"github.com/poiesic/tradevec/storage"
)

// Summary reports the outcome of one Run.
type Summary struct {
	Entries int
	Elapsed time.Duration
}

// Reembedder rewrites every entry of a collection with fresh vectors.
type Reembedder struct {
	store          storage.VectorStore
	ledger         *ledger.Ledger
	iterator       *EntryIterator
	processor      *BatchProcessor
	progress       io.Writer
	pageSize       int
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Reembedder.
type Option func(*Reembedder) error

// WithPageSize sets the number of entries read, embedded and written at a
// time. Default is DefaultPageSize.
func WithPageSize(size int) Option {
	return func(r *Reembedder) error {
		if size <= 0 {
			return fmt.Errorf("page size must be positive, got %d", size)
		}
		r.pageSize = size
		return nil
	}
}

// WithProgress writes progress to w every reportInterval entries.
func WithProgress(w io.Writer, reportInterval int) Option {
	return func(r *Reembedder) error {
		r.progress = w
		r.reportInterval = reportInterval
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewReembedder creates a reembedder. The store's collection must already be
// ensured with the batcher's dimension. The ledger's run lock is held for the
// whole Run, so ingestion and re-embedding never overlap.
func NewReembedder(store storage.VectorStore, batcher *embedding.Batcher, l *ledger.Ledger, opts ...Option) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if batcher == nil {
		return nil, ErrBatcherRequired
	}
	if l == nil {
		return nil, ErrLedgerRequired
	}

	r := &Reembedder{
		store:    store,
		ledger:   l,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "reembed")
	r.iterator = NewEntryIterator(store, r.pageSize)
	r.processor = NewBatchProcessor(store, batcher)
	return r, nil
}

// Run re-embeds every entry. It stops at the first failed page; pages
// written before the failure keep their new vectors, and a second Run
// rewrites everything again.
func (r *Reembedder) Run(ctx context.Context) (*Summary, error) {
	unlock, err := r.ledger.Lock()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			r.logger.Error("error releasing run lock", "err", err)
		}
	}()

	start := time.Now()
	summary := &Summary{}
	defer func() { summary.Elapsed = time.Since(start) }()

	total, err := r.store.Count(ctx)
	if err != nil {
		return summary, fmt.Errorf("count entries: %w", err)
	}
	if total == 0 {
		r.logger.Info("no entries to re-embed")
		return summary, nil
	}

	r.logger.Info("starting re-embedding", "entries", total, "page_size", r.pageSize)
	var tracker *ProgressTracker
	if r.progress != nil {
		tracker = NewProgressTracker(r.progress, total, r.reportInterval)
		tracker.Start()
	}

	err = r.iterator.ForEach(ctx, func(page []*core.Entry) error {
		if err := r.processor.Process(ctx, page); err != nil {
			return err
		}
		summary.Entries += len(page)
		if tracker != nil {
			tracker.Increment(len(page))
		}
		return nil
	})
	if err != nil {
		r.logger.Error("re-embedding stopped", "done", summary.Entries, "err", err)
		return summary, err
	}

	if tracker != nil {
		tracker.Finish()
	}
	r.logger.Info("re-embedding complete", "entries", summary.Entries, "elapsed", time.Since(start))
	return summary, nil
}
