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


package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotReady is returned by Upsert and Query before EnsureCollection.
	ErrCollectionNotReady = errors.New("collection not ready")

	// ErrDimensionMismatch indicates a vector or collection of the wrong length.
	// It is a configuration error and is never retried.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUpsertFailed indicates that entries could not be written.
	ErrUpsertFailed = errors.New("upsert failed")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrInvalidFilter indicates a filter expression that cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidCollection indicates an empty name or non-positive dimension.
	ErrInvalidCollection = errors.New("invalid collection")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)

// UpsertError reports a partially applied Upsert.
// Entries before Index were stored; Index and everything after it were not.
type UpsertError struct {
	Index int
	Err   error
}

// Error implements error.
func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert failed at entry %d: %v", e.Index, e.Err)
}

// Unwrap exposes both ErrUpsertFailed and the underlying cause to errors.Is.
func (e *UpsertError) Unwrap() []error {
	return []error{ErrUpsertFailed, e.Err}
}
