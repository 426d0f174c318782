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

import "errors"

// Domain validation errors
var (
	// ErrMalformedRecord indicates a raw record could not be normalized.
	// The record is dropped; processing of its file continues.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownSourceKind indicates an unsupported source kind.
	ErrUnknownSourceKind = errors.New("unknown source kind")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidEntry indicates an Entry failed validation.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrMissingMetadata indicates a required metadata key is absent.
	ErrMissingMetadata = errors.New("required metadata missing")

	// ErrEmptyID indicates the ID field is empty.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrEmptyVector indicates the Vector field is empty.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidMetadataValue indicates a metadata value is not a supported scalar.
	ErrInvalidMetadataValue = errors.New("metadata value must be a string, number or bool")

	// ErrCorruptEncoding indicates persisted bytes could not be decoded.
	ErrCorruptEncoding = errors.New("corrupt encoding")
)
