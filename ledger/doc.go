// Package ledger tracks which raw intake files have been ingested.
//
// A file is pending while it sits in the raw directory and committed once it
// has been renamed into the processed directory. The rename is the only
// mutation the pipeline makes to either directory, so a crash at any point
// leaves a file either fully pending or fully committed. Callers hold the
// run lock returned by Lock for the duration of a run so two processes never
// ingest the same file concurrently.
package ledger
