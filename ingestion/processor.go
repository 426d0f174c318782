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


package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/embedding"
	"github.com/poiesic/tradevec/ledger"
	"github.com/poiesic/tradevec/normalize"
	"github.com/poiesic/tradevec/storage"
)

// fileResult describes one file that was fully embedded and upserted.
type fileResult struct {
	records int
	dropped int
	vectors int
	digest  string
}

// fileProcessor runs the decode, normalize, embed and upsert stages for a
// single file. It never touches the ledger.
type fileProcessor struct {
	store   storage.VectorStore
	batcher *embedding.Batcher
	logger  *slog.Logger
}

func (fp *fileProcessor) process(ctx context.Context, f ledger.File) (*fileResult, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}

	elements, err := decodeRecords(data)
	if err != nil {
		return nil, err
	}

	chunks, dropped := fp.normalize(f, elements)
	result := &fileResult{
		records: len(chunks),
		dropped: dropped,
		digest:  core.Digest(data),
	}
	if len(chunks) == 0 {
		fp.logger.Warn("no usable records in file", "file", f.Name, "dropped", dropped)
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	fp.logger.Debug("embedding chunks", "file", f.Name, "chunks", len(texts))
	vectors, err := fp.batcher.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	entries := buildEntries(f.Name, chunks, vectors)
	if err := fp.store.Upsert(ctx, entries); err != nil {
		return nil, err
	}
	result.vectors = len(entries)
	return result, nil
}

// normalize decodes and converts each element into a chunk. Elements that
// are not objects and malformed records are logged and counted; they never
// fail the file.
func (fp *fileProcessor) normalize(f ledger.File, elements []json.RawMessage) ([]*core.Chunk, int) {
	chunks := make([]*core.Chunk, 0, len(elements))
	dropped := 0
	for i, raw := range elements {
		chunk, err := normalizeElement(raw, f.Kind)
		if err != nil {
			fp.logger.Warn("dropping record", "file", f.Name, "index", i, "err", err)
			dropped++
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks, dropped
}

// decodeRecords splits a raw file into its array elements. Only a file that
// is not a single non-empty JSON array fails here.
func decodeRecords(data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var elements []json.RawMessage
	if err := dec.Decode(&elements); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileDecode, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrFileDecode)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrFileDecode)
	}
	return elements, nil
}

// normalizeElement decodes one array element and normalizes it. Numbers are
// kept as json.Number so the normalizers can render codes and periods
// without float formatting.
func normalizeElement(raw json.RawMessage, kind core.SourceKind) (*core.Chunk, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var record core.RawRecord
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedRecord, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: null record", core.ErrMalformedRecord)
	}
	return normalize.Normalize(record, kind)
}

// buildEntries pairs chunks with their vectors. Records sharing a natural
// key collapse into one entry; the last occurrence wins, matching what an
// upsert of both would leave behind.
func buildEntries(file string, chunks []*core.Chunk, vectors [][]float32) []*core.Entry {
	entries := make([]*core.Entry, 0, len(chunks))
	position := make(map[string]int, len(chunks))

	for i, c := range chunks {
		metadata := c.Metadata.Clone()
		if metadata == nil {
			metadata = core.Metadata{}
		}
		metadata[core.MetaFile] = file

		entry := &core.Entry{
			ID:       c.ID(),
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: metadata,
		}
		if at, ok := position[entry.ID]; ok {
			entries[at] = entry
			continue
		}
		position[entry.ID] = len(entries)
		entries = append(entries, entry)
	}
	return entries
}

// isFatal reports whether err means the whole run cannot continue, as
// opposed to a problem confined to one file.
func isFatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, storage.ErrDimensionMismatch) ||
		errors.Is(err, embedding.ErrDimensionMismatch) ||
		errors.Is(err, storage.ErrCollectionNotReady) ||
		errors.Is(err, storage.ErrStorageClosed)
}
