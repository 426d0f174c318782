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


package core

import (
	"maps"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Binary codecs for persisted records, built from mus-go primitives.
// Every codec exposes Marshal, Unmarshal and Size with mus-go semantics:
// Marshal writes into a buffer of at least Size bytes and returns the number
// of bytes written; Unmarshal returns the value and bytes consumed.
var (
	MetadataMUS   = metadataMUS{}
	VectorMUS     = vectorMUS{}
	EntryMUS      = entryMUS{}
	CollectionMUS = collectionMUS{}
	FileCommitMUS = fileCommitMUS{}
)

const (
	metaTagString = iota
	metaTagFloat
	metaTagBool
)

type metadataMUS struct{}

// scalarKeys returns the sorted keys whose values can be encoded.
func scalarKeys(m Metadata) []string {
	keys := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		switch m[k].(type) {
		case string, float64, bool:
			keys = append(keys, k)
		}
	}
	return keys
}

func (metadataMUS) Marshal(v Metadata, bs []byte) (n int) {
	keys := scalarKeys(v)
	n = varint.Int.Marshal(len(keys), bs)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		switch val := v[k].(type) {
		case string:
			n += varint.Int.Marshal(metaTagString, bs[n:])
			n += ord.String.Marshal(val, bs[n:])
		case float64:
			n += varint.Int.Marshal(metaTagFloat, bs[n:])
			n += raw.Float64.Marshal(val, bs[n:])
		case bool:
			n += varint.Int.Marshal(metaTagBool, bs[n:])
			n += ord.Bool.Marshal(val, bs[n:])
		}
	}
	return n
}

func (metadataMUS) Size(v Metadata) (size int) {
	keys := scalarKeys(v)
	size = varint.Int.Size(len(keys))
	for _, k := range keys {
		size += ord.String.Size(k)
		switch val := v[k].(type) {
		case string:
			size += varint.Int.Size(metaTagString) + ord.String.Size(val)
		case float64:
			size += varint.Int.Size(metaTagFloat) + raw.Float64.Size(val)
		case bool:
			size += varint.Int.Size(metaTagBool) + ord.Bool.Size(val)
		}
	}
	return size
}

func (metadataMUS) Unmarshal(bs []byte) (v Metadata, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrCorruptEncoding
	}
	v = make(Metadata, length)
	var m int
	for i := 0; i < length; i++ {
		var key string
		key, m, err = ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		var tag int
		tag, m, err = varint.Int.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		switch tag {
		case metaTagString:
			var s string
			s, m, err = ord.String.Unmarshal(bs[n:])
			v[key] = s
		case metaTagFloat:
			var f float64
			f, m, err = raw.Float64.Unmarshal(bs[n:])
			v[key] = f
		case metaTagBool:
			var b bool
			b, m, err = ord.Bool.Unmarshal(bs[n:])
			v[key] = b
		default:
			return nil, n, ErrCorruptEncoding
		}
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrCorruptEncoding
	}
	v = make([]float32, length)
	var m int
	for i := range v {
		v[i], m, err = raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

type entryMUS struct{}

func (entryMUS) Marshal(v Entry, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += VectorMUS.Marshal(v.Vector, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += MetadataMUS.Marshal(v.Metadata, bs[n:])
	return n
}

func (entryMUS) Size(v Entry) (size int) {
	return ord.String.Size(v.ID) +
		VectorMUS.Size(v.Vector) +
		ord.String.Size(v.Text) +
		MetadataMUS.Size(v.Metadata)
}

func (entryMUS) Unmarshal(bs []byte) (v Entry, n int, err error) {
	var m int
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Vector, m, err = VectorMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Text, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Metadata, m, err = MetadataMUS.Unmarshal(bs[n:])
	n += m
	return
}

type collectionMUS struct{}

func (collectionMUS) Marshal(v Collection, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += varint.Int.Marshal(v.Dimension, bs[n:])
	n += ord.String.Marshal(v.Metric, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	return n
}

func (collectionMUS) Size(v Collection) (size int) {
	return ord.String.Size(v.Name) +
		varint.Int.Size(v.Dimension) +
		ord.String.Size(v.Metric) +
		varint.Int64.Size(v.CreatedAt.UnixMicro())
}

func (collectionMUS) Unmarshal(bs []byte) (v Collection, n int, err error) {
	var m int
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Dimension, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Metric, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	var micros int64
	micros, m, err = varint.Int64.Unmarshal(bs[n:])
	n += m
	v.CreatedAt = time.UnixMicro(micros).UTC()
	return
}

type fileCommitMUS struct{}

func (fileCommitMUS) Marshal(v FileCommit, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(string(v.Kind), bs[n:])
	n += varint.Int.Marshal(v.Records, bs[n:])
	n += varint.Int.Marshal(v.Dropped, bs[n:])
	n += varint.Int.Marshal(v.Vectors, bs[n:])
	n += ord.String.Marshal(v.Digest, bs[n:])
	n += varint.Int64.Marshal(v.CommittedAt.UnixMicro(), bs[n:])
	return n
}

func (fileCommitMUS) Size(v FileCommit) (size int) {
	return ord.String.Size(v.Name) +
		ord.String.Size(string(v.Kind)) +
		varint.Int.Size(v.Records) +
		varint.Int.Size(v.Dropped) +
		varint.Int.Size(v.Vectors) +
		ord.String.Size(v.Digest) +
		varint.Int64.Size(v.CommittedAt.UnixMicro())
}

func (fileCommitMUS) Unmarshal(bs []byte) (v FileCommit, n int, err error) {
	var m int
	v.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var kind string
	kind, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Kind = SourceKind(kind)
	for _, field := range []*int{&v.Records, &v.Dropped, &v.Vectors} {
		*field, m, err = varint.Int.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return
		}
	}
	v.Digest, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	var micros int64
	micros, m, err = varint.Int64.Unmarshal(bs[n:])
	n += m
	v.CommittedAt = time.UnixMicro(micros).UTC()
	return
}
