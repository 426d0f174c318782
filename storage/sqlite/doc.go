// Package sqlite implements storage.Store on a single SQLite file using the
// pure-Go modernc.org/sqlite driver.
//
// Vectors are stored unit-normalized as mus-encoded blobs and metadata as
// JSON text. Similarity is computed in Go over the rows of the collection,
// which suits the small-to-medium collections a single-node ingest produces.
// Upserts use INSERT ... ON CONFLICT DO UPDATE inside one transaction per
// batch.
package sqlite
