package core

import (
	"maps"
	"time"
)

// SourceKind identifies the schema family of a raw trade record.
type SourceKind string

const (
	// SourceComtrade is a periodic statistical aggregate (UN Comtrade style).
	SourceComtrade SourceKind = "comtrade"
	// SourceBillOfLading is an individual shipment event from a bill of lading.
	SourceBillOfLading SourceKind = "bill_of_lading"
)

// SourceKinds lists every supported kind in processing order.
var SourceKinds = []SourceKind{SourceComtrade, SourceBillOfLading}

// FilePrefix returns the raw file name prefix used for this kind.
func (k SourceKind) FilePrefix() string {
	switch k {
	case SourceComtrade:
		return "comtrade"
	case SourceBillOfLading:
		return "bl"
	default:
		return ""
	}
}

// SourceKindFromPrefix maps a raw file name prefix back to its kind.
func SourceKindFromPrefix(prefix string) (SourceKind, bool) {
	for _, k := range SourceKinds {
		if k.FilePrefix() == prefix {
			return k, true
		}
	}
	return "", false
}

// RawRecord is one decoded JSON object from a raw intake file.
// Records are never mutated once decoded.
type RawRecord map[string]any

// Metadata holds scalar values (string, float64 or bool) attached to a chunk.
// It is used for filtering, never for ranking.
type Metadata map[string]any

// Clone returns a shallow copy of the metadata.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// String returns the string value stored under key, or "".
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Float returns the numeric value stored under key, or 0.
func (m Metadata) Float(key string) float64 {
	f, _ := m[key].(float64)
	return f
}

// Standard metadata keys shared by every source kind.
const (
	MetaSource = "source"
	MetaDate   = "date"
	MetaHSCode = "hs_code"
	MetaFile   = "file"
)

// Chunk is the canonical unit flowing through the pipeline: a natural
// language sentence plus filterable metadata derived from one RawRecord.
type Chunk struct {
	Kind     SourceKind
	Text     string
	Metadata Metadata
	// Key is the record's natural key. It determines the stored entry ID.
	Key []string
}

// ID returns the deterministic vector entry ID for this chunk.
func (c *Chunk) ID() string {
	return EntryID(c.Kind, c.Key...)
}

// Entry is the persisted unit in a vector store.
type Entry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata Metadata
}

// Match is a single nearest-neighbour query result.
type Match struct {
	ID       string
	Score    float32
	Text     string
	Metadata Metadata
}

// Collection describes a named vector collection.
type Collection struct {
	Name      string
	Dimension int
	Metric    string
	CreatedAt time.Time
}

// MetricCosine is the only similarity metric collections are created with.
const MetricCosine = "cosine"

// FileCommit records one raw file committed by the pipeline.
type FileCommit struct {
	Name        string
	Kind        SourceKind
	Records     int
	Dropped     int
	Vectors     int
	Digest      string // BLAKE2b digest of the file contents
	CommittedAt time.Time
}
