package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressTracker reports per-file progress of an ingestion run.
type ProgressTracker struct {
	writer    io.Writer
	total     int
	files     int
	records   int
	startTime time.Time
	started   bool
	stopped   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for a run over total files.
// writer: where to write progress output (typically os.Stderr)
func NewProgressTracker(writer io.Writer, total int) *ProgressTracker {
	return &ProgressTracker{
		writer: writer,
		total:  total,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.stopped = false
	p.files = 0
	p.records = 0
}

// Advance records that one more file has been handled, successfully or not.
func (p *ProgressTracker) Advance(file string, records int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if p.stopped {
		return
	}
	if p.files < p.total {
		p.files++
	}
	p.records += records
	p.report(file)
}

// Finish prints the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return
	}

	p.files = p.total
	p.report("")
	fmt.Fprintln(p.writer)
	p.stopped = true
}

// Stop ends the progress line where it stands, for runs that end early.
// It does nothing after Finish.
func (p *ProgressTracker) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.stopped {
		return
	}

	p.report("")
	fmt.Fprintln(p.writer)
	p.stopped = true
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report(file string) {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.records) / elapsed.Seconds()
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.files) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d files (%.1f%%) - %s records (%.1f records/s)",
		p.files, p.total, percentage, humanize.Comma(int64(p.records)), rate)
	if file != "" {
		fmt.Fprintf(p.writer, " %s", file)
	}
}
