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


// Package ai provides abstractions for the embedding services used by tradevec.
//
// The ingestion pipeline depends only on the Embedder interface; which
// concrete provider backs it is decided once, from Config.Provider, when the
// application is wired together.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible APIs via langchaingo
//   - ai/ollama: Ollama's native embedding API via langchaingo
//   - ai/mock: Test doubles and an offline deterministic provider
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, ollama.NewEmbedder, etc.) return
// INTERFACE types to prevent accidental coupling to concrete implementations.
// Mock constructors return CONCRETE types so tests can inject behavior and
// assert call counts.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//	mockEmbed := mock.NewMockEmbedder(8)         // returns *mock.MockEmbedder
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithModel("text-embedding-3-small"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	dim, err := ai.DetectDimension(ctx, provider.Embedder())
package ai
