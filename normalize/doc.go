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


// Package normalize converts raw trade records into canonical chunks.
//
// Each source kind has a Normalizer that reads a fixed set of fields, applies
// documented defaults for absent fields, and renders a fixed natural-language
// template plus filterable metadata. Normalization is a pure function: the
// same record always yields a byte-identical chunk.
//
// A record is rejected with core.ErrMalformedRecord only when a numeric field
// cannot be coerced to a number or a field holds a non-scalar value. Missing
// fields never cause rejection; they render as their default token (for
// example "Unknown" or "World").
//
// # Usage
//
//	chunk, err := normalize.Normalize(record, core.SourceComtrade)
//	if errors.Is(err, core.ErrMalformedRecord) {
//	    // drop the record and continue with the file
//	}
package normalize
