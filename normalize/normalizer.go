package normalize

import (
	"fmt"

	"github.com/poiesic/tradevec/core"
)

// Normalizer converts one raw record of a single source kind into a chunk.
// Implementations are stateless and safe for concurrent use.
type Normalizer interface {
	// Kind returns the source kind this normalizer understands.
	Kind() core.SourceKind

	// Normalize renders the record. It returns an error wrapping
	// core.ErrMalformedRecord when the record cannot be rendered.
	Normalize(r core.RawRecord) (*core.Chunk, error)
}

var normalizers = map[core.SourceKind]Normalizer{
	core.SourceComtrade:     comtradeNormalizer{},
	core.SourceBillOfLading: shipmentNormalizer{},
}

// For returns the normalizer for kind.
func For(kind core.SourceKind) (Normalizer, error) {
	n, ok := normalizers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownSourceKind, kind)
	}
	return n, nil
}

// Normalize converts record using the normalizer registered for kind.
func Normalize(record core.RawRecord, kind core.SourceKind) (*core.Chunk, error) {
	n, err := For(kind)
	if err != nil {
		return nil, err
	}
	return n.Normalize(record)
}
