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


package reembed

import (
	"context"

	"github.com/poiesic/tradevec/core"
	"github.com/poiesic/tradevec/storage"
)

// DefaultPageSize is the number of entries fetched per page.
const DefaultPageSize = 100

// EntryIterator pages through a collection in ID order.
type EntryIterator struct {
	store    storage.VectorStore
	pageSize int
}

// NewEntryIterator creates an iterator over store's open collection.
// A pageSize of zero or less uses DefaultPageSize.
func NewEntryIterator(store storage.VectorStore, pageSize int) *EntryIterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &EntryIterator{
		store:    store,
		pageSize: pageSize,
	}
}

// ForEach calls fn with each page of entries until the collection is
// exhausted or fn returns an error. Pages are keyed on the last ID seen, so
// entries rewritten by fn are not visited twice.
func (it *EntryIterator) ForEach(ctx context.Context, fn func([]*core.Entry) error) error {
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := it.store.Scan(ctx, after, it.pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		after = page[len(page)-1].ID
		if err := fn(page); err != nil {
			return err
		}
		if len(page) < it.pageSize {
			return nil
		}
	}
}
