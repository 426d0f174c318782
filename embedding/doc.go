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


// Package embedding turns ordered lists of texts into ordered lists of vectors.
//
// A Batcher splits its input into contiguous batches and sends each batch to
// the provider in one EmbedTexts call. When a batch call fails, or returns the
// wrong number of vectors, every text of that batch is embedded on its own
// through EmbedText with bounded exponential backoff. A text that still
// cannot be embedded fails the whole call with ErrEmbeddingFailed, so callers
// never receive a partial result.
//
// # Ordering
//
// The returned slice always has the same length and order as the input,
// regardless of how many batches ran concurrently or fell back to single
// items.
//
// # Usage
//
//	batcher, err := embedding.NewBatcher(provider.Embedder(),
//	    embedding.WithBatchSize(100),
//	    embedding.WithConcurrency(4),
//	    embedding.WithRateLimit(10),
//	)
//	if err != nil {
//	    return err
//	}
//	defer batcher.Release()
//
//	vectors, err := batcher.EmbedBatch(ctx, texts)
package embedding
