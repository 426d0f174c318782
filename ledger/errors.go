package ledger

import "errors"

var (
	// ErrLocked is returned by Lock when another run holds the lock.
	ErrLocked = errors.New("ingestion run already in progress")

	// ErrAlreadyCommitted is returned when the processed directory already
	// holds a file with the same name.
	ErrAlreadyCommitted = errors.New("file already committed")

	// ErrNotPending is returned when committing a file that is no longer in
	// the raw directory.
	ErrNotPending = errors.New("file is not pending")

	// ErrDirRequired is returned when a directory path is empty.
	ErrDirRequired = errors.New("directory path required")
)
