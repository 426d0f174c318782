package reembed

import "errors"

var (
	// ErrStoreRequired is returned when no vector store is provided.
	ErrStoreRequired = errors.New("vector store is required")

	// ErrBatcherRequired is returned when no embedding batcher is provided.
	ErrBatcherRequired = errors.New("embedding batcher is required")

	// ErrLedgerRequired is returned when no file ledger is provided.
	ErrLedgerRequired = errors.New("file ledger is required")
)
