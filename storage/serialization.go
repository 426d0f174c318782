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
	"fmt"

	"github.com/poiesic/tradevec/core"
)

// MarshalEntry serializes an Entry to bytes.
func MarshalEntry(entry *core.Entry) []byte {
	buf := make([]byte, core.EntryMUS.Size(*entry))
	core.EntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalEntry deserializes an Entry from bytes.
func UnmarshalEntry(data []byte) (*core.Entry, error) {
	entry, _, err := core.EntryMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: entry: %w", ErrSerializationFailed, err)
	}
	return &entry, nil
}

// MarshalCollection serializes a Collection to bytes.
func MarshalCollection(collection *core.Collection) []byte {
	buf := make([]byte, core.CollectionMUS.Size(*collection))
	core.CollectionMUS.Marshal(*collection, buf)
	return buf
}

// UnmarshalCollection deserializes a Collection from bytes.
func UnmarshalCollection(data []byte) (*core.Collection, error) {
	collection, _, err := core.CollectionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: collection: %w", ErrSerializationFailed, err)
	}
	return &collection, nil
}

// MarshalFileCommit serializes a FileCommit to bytes.
func MarshalFileCommit(commit *core.FileCommit) []byte {
	buf := make([]byte, core.FileCommitMUS.Size(*commit))
	core.FileCommitMUS.Marshal(*commit, buf)
	return buf
}

// UnmarshalFileCommit deserializes a FileCommit from bytes.
func UnmarshalFileCommit(data []byte) (*core.FileCommit, error) {
	commit, _, err := core.FileCommitMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: file commit: %w", ErrSerializationFailed, err)
	}
	return &commit, nil
}

// MarshalMetadata serializes metadata on its own, for backends that keep the
// vector and the metadata in separate columns.
func MarshalMetadata(m core.Metadata) []byte {
	buf := make([]byte, core.MetadataMUS.Size(m))
	core.MetadataMUS.Marshal(m, buf)
	return buf
}

// UnmarshalMetadata deserializes metadata written by MarshalMetadata.
func UnmarshalMetadata(data []byte) (core.Metadata, error) {
	m, _, err := core.MetadataMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrSerializationFailed, err)
	}
	return m, nil
}

// MarshalVector serializes a vector to bytes.
func MarshalVector(v []float32) []byte {
	buf := make([]byte, core.VectorMUS.Size(v))
	core.VectorMUS.Marshal(v, buf)
	return buf
}

// UnmarshalVector deserializes a vector written by MarshalVector.
func UnmarshalVector(data []byte) ([]float32, error) {
	v, _, err := core.VectorMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: vector: %w", ErrSerializationFailed, err)
	}
	return v, nil
}
