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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/tradevec/ledger"
)

// DefaultDebounce is how long Watch waits after the last file event before
// starting a run. Writers usually create a file and then write it in several
// chunks; the delay lets the file settle.
const DefaultDebounce = 2 * time.Second

// RunFunc receives the outcome of each run started by Watch.
type RunFunc func(summary *RunSummary, err error)

// Watch runs the pipeline once and then again whenever raw files appear,
// until ctx is done. A run is skipped, not failed, when another process
// holds the run lock. Watch returns ctx's error on cancellation, or the
// error of a run that could not proceed for reasons other than the lock.
func (p *Pipeline) Watch(ctx context.Context, debounce time.Duration, onRun RunFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(p.ledger.RawDir()); err != nil {
		return fmt.Errorf("watch %s: %w", p.ledger.RawDir(), err)
	}
	p.logger.Info("watching for raw files", "dir", p.ledger.RawDir(), "debounce", debounce)

	run := func() error {
		summary, err := p.Run(ctx)
		if errors.Is(err, ledger.ErrLocked) {
			p.logger.Warn("skipping run", "err", err)
			return nil
		}
		if onRun != nil {
			onRun(summary, err)
		}
		return err
	}

	if err := run(); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if !isIntakeEvent(event) {
				continue
			}
			p.logger.Debug("raw file event", "file", filepath.Base(event.Name), "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			p.logger.Warn("watcher error", "err", err)

		case <-timer.C:
			if err := run(); err != nil {
				return err
			}
		}
	}
}

// isIntakeEvent reports whether event may have produced a pending file.
func isIntakeEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	_, ok := ledger.KindOf(filepath.Base(event.Name))
	return ok
}
