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


package core

import (
	"fmt"
)

// requiredMetadata are the keys every chunk must carry regardless of kind.
var requiredMetadata = []string{MetaSource, MetaDate, MetaHSCode}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Kind must be a known source kind
//   - Text must not be empty
//   - Metadata must contain source, date and hs_code
//   - Metadata values must be scalars
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if err := ValidateSourceKind(chunk.Kind); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	for _, key := range requiredMetadata {
		if _, ok := chunk.Metadata[key]; !ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidChunk, ErrMissingMetadata, key)
		}
	}

	if err := ValidateMetadata(chunk.Metadata); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	return nil
}

// ValidateEntry validates an Entry before it is written to a vector store.
//
// Validation rules:
//   - ID must not be empty
//   - Vector must not be empty
//   - Metadata values must be scalars
//
// Vector length is NOT validated here; stores check it against the
// collection dimension.
func ValidateEntry(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyID)
	}

	if len(entry.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyVector)
	}

	if err := ValidateMetadata(entry.Metadata); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	return nil
}

// ValidateMetadata checks that every value is a string, float64 or bool.
func ValidateMetadata(m Metadata) error {
	for key, value := range m {
		switch value.(type) {
		case string, float64, bool:
		default:
			return fmt.Errorf("%w: %s has type %T", ErrInvalidMetadataValue, key, value)
		}
	}
	return nil
}

// ValidateSourceKind validates that a SourceKind has a known value.
func ValidateSourceKind(kind SourceKind) error {
	for _, k := range SourceKinds {
		if k == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownSourceKind, kind)
}
