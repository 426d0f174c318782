package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Lock acquires the run lock. The returned function releases it. A second
// caller gets ErrLocked until the first releases, even across processes.
//
// The lock is an advisory file lock held by the open descriptor, so the
// kernel drops it when the holding process exits, crash included. The lock
// file itself stays in place and names the pid and start time of the
// current holder.
func (l *Ledger) Lock() (func() error, error) {
	path := filepath.Join(l.rawDir, LockFileName)
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		holder, _ := os.ReadFile(path)
		return nil, fmt.Errorf("%w: %s", ErrLocked, strings.TrimSpace(string(holder)))
	}

	holder := fmt.Sprintf("pid=%d started=%s", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(holder), 0o644); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("write lock: %w", err)
	}

	l.logger.Debug("run lock acquired", "path", path)
	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		if err := os.Truncate(path, 0); err != nil {
			l.logger.Warn("error clearing lock holder", "path", path, "err", err)
		}
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("release lock: %w", err)
		}
		return nil
	}, nil
}
