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


// Package storage provides the vector store abstraction layer for tradevec.
//
// This package defines the interfaces that decouple the ingestion pipeline
// from the storage engine, so BadgerDB, SQLite and PostgreSQL/pgvector
// backends can be used interchangeably.
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.Store interface:
//
//	store, err := badger.NewStore(backend)  // returns storage.Store interface
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Architecture
//
//   - VectorStore: collections, idempotent upsert, filtered similarity query
//   - Journal: the record of raw files committed by the pipeline
//   - Store: both of the above, as provided by every backend
//   - Filter: conjunction of metadata conditions shared by all backends
//
// # Upsert Semantics
//
// Entries are keyed by ID; writing an ID twice overwrites the first write.
// Upsert commits in chunks, each in its own transaction. When a chunk fails
// the chunks before it stay durable and the returned error is an
// *UpsertError naming the index of the first entry not stored.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
