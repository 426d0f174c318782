// Package reembed refreshes the vector of every entry in a collection with
// the configured embedder.
//
// Entries keep their IDs, texts and metadata; only vectors are replaced. It
// is meant for switching to another embedding model of the same dimension
// without re-reading the raw files, which by then live in the processed
// directory.
package reembed
