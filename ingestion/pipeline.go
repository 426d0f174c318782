package ingestion

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

// FileFailure names a file left pending by a run and why.
type FileFailure struct {
	Name string
	Err  error
}

// RunSummary reports the outcome of one Run.
type RunSummary struct {
	FilesDiscovered   int
	FilesCommitted    int
	FilesFailed       []FileFailure
	RecordsNormalized int
	RecordsDropped    int
	VectorsUpserted   int
	Elapsed           time.Duration
}

// Failed reports whether any file was left pending.
func (s *RunSummary) Failed() bool {
	return len(s.FilesFailed) > 0
}

// Pipeline ingests pending raw files into a vector store.
type Pipeline struct {
	store     storage.Store
	ledger    *ledger.Ledger
	processor *fileProcessor
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithProgress writes per-file progress to w (typically os.Stderr).
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline. The store's collection must
// already be ensured.
func NewPipeline(store storage.Store, batcher *embedding.Batcher, l *ledger.Ledger, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if batcher == nil {
		return nil, ErrBatcherRequired
	}
	if l == nil {
		return nil, ErrLedgerRequired
	}

	p := &Pipeline{
		store:  store,
		ledger: l,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")
	p.processor = &fileProcessor{
		store:   store,
		batcher: batcher,
		logger:  p.logger,
	}
	return p, nil
}

// Run ingests every pending file. Per-file failures are collected in the
// summary and do not stop the run. The returned error is non-nil only when
// the run itself could not proceed: the lock is held elsewhere, the context
// ended, or the store and embedder disagree on vector dimension. The summary
// is returned in every case once the lock has been acquired.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	unlock, err := p.ledger.Lock()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			p.logger.Error("error releasing run lock", "err", err)
		}
	}()

	start := time.Now()
	summary := &RunSummary{}
	defer func() { summary.Elapsed = time.Since(start) }()

	files, err := p.ledger.Pending()
	if err != nil {
		return summary, err
	}
	summary.FilesDiscovered = len(files)
	if len(files) == 0 {
		p.logger.Info("no pending files")
		return summary, nil
	}

	p.logger.Info("starting ingestion run", "files", len(files))
	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(files))
		tracker.Start()
		defer tracker.Stop()
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := p.ingestFile(ctx, f)
		if tracker != nil {
			records := 0
			if result != nil {
				records = result.records
			}
			tracker.Advance(f.Name, records)
		}
		if err != nil {
			if isFatal(err) {
				p.logger.Error("aborting ingestion run", "file", f.Name, "err", err)
				summary.FilesFailed = append(summary.FilesFailed, FileFailure{Name: f.Name, Err: err})
				return summary, err
			}
			p.logger.Error("file left pending", "file", f.Name, "err", err)
			summary.FilesFailed = append(summary.FilesFailed, FileFailure{Name: f.Name, Err: err})
			continue
		}

		summary.FilesCommitted++
		summary.RecordsNormalized += result.records
		summary.RecordsDropped += result.dropped
		summary.VectorsUpserted += result.vectors
	}

	if tracker != nil {
		tracker.Finish()
	}
	p.logger.Info("ingestion run complete",
		"committed", summary.FilesCommitted,
		"failed", len(summary.FilesFailed),
		"vectors", summary.VectorsUpserted,
		"dropped", summary.RecordsDropped)
	return summary, nil
}

// ingestFile processes and commits one file. The journal entry is written
// after the commit; a journal failure is logged but does not undo the commit.
func (p *Pipeline) ingestFile(ctx context.Context, f ledger.File) (*fileResult, error) {
	p.logger.Info("processing file", "file", f.Name, "kind", f.Kind)

	result, err := p.processor.process(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	if err := p.ledger.Commit(f); err != nil {
		return result, fmt.Errorf("%s: %w", f.Name, err)
	}

	commit := &core.FileCommit{
		Name:        f.Name,
		Kind:        f.Kind,
		Records:     result.records,
		Dropped:     result.dropped,
		Vectors:     result.vectors,
		Digest:      result.digest,
		CommittedAt: time.Now().UTC(),
	}
	if err := p.store.Record(ctx, commit); err != nil {
		p.logger.Warn("error recording file commit", "file", f.Name, "err", err)
	}

	p.logger.Info("file committed", "file", f.Name,
		"records", result.records, "dropped", result.dropped, "vectors", result.vectors)
	return result, nil
}
