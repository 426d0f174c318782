// Package ingestion turns pending raw trade files into stored vectors.
//
// A Pipeline run takes the ledger's run lock and then handles each pending
// file in order:
//   - decode the JSON array of records
//   - normalize every record into a chunk, dropping malformed ones
//   - embed all chunk texts through the embedding.Batcher
//   - upsert entries with deterministic ids into the vector store
//   - commit the file by renaming it into the processed directory
//   - record a FileCommit in the store's journal
//
// A file that fails at any stage stays pending and is listed in the run
// summary; the run moves on to the next file. Because entry ids are derived
// from each record's natural key, re-running over a file that previously
// failed half way overwrites rather than duplicates what was stored.
package ingestion
