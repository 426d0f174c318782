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


// Package search answers natural language questions against the vector store.
//
// A query is embedded with the same provider used for ingestion and the
// nearest entries are returned by cosine similarity, optionally restricted
// by a metadata filter:
//
//	filter, _ := storage.ParseFilter([]string{"hs_code=851712", "source=bill_of_lading"})
//	matches, err := searcher.Search(ctx, "smartphone imports from China", 5, filter)
package search
