package storage

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/poiesic/tradevec/core"
)

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// DotProduct calculates the dot product of two vectors of equal length.
// For unit vectors this is their cosine similarity.
func DotProduct(a, b []float32) float32 {
	var sum float32
	for i := range min(len(a), len(b)) {
		sum += a[i] * b[i]
	}
	return sum
}

// TopK keeps the k highest scoring matches, highest first. Ties are broken
// by ID so results are stable between runs.
func TopK(matches []*core.Match, k int) []*core.Match {
	slices.SortFunc(matches, func(a, b *core.Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// CheckQuery validates the arguments shared by every Query implementation.
func CheckQuery(vector []float32, topK int, dimension int, filter Filter) error {
	if topK <= 0 {
		return fmt.Errorf("%w: topK must be positive, got %d", ErrInvalidQuery, topK)
	}
	if len(vector) != dimension {
		return fmt.Errorf("%w: query vector has length %d, collection expects %d", ErrDimensionMismatch, len(vector), dimension)
	}
	return filter.Validate()
}

// PrepareEntries validates entries against the collection dimension and
// returns copies with unit-length vectors and cloned metadata. The caller's
// entries are never modified.
func PrepareEntries(entries []*core.Entry, dimension int) ([]*core.Entry, error) {
	prepared := make([]*core.Entry, len(entries))
	for i, e := range entries {
		if err := core.ValidateEntry(e); err != nil {
			return nil, &UpsertError{Index: i, Err: err}
		}
		if len(e.Vector) != dimension {
			return nil, &UpsertError{Index: i, Err: ErrDimensionMismatch}
		}
		prepared[i] = &core.Entry{
			ID:       e.ID,
			Vector:   NormalizeVector(e.Vector),
			Text:     e.Text,
			Metadata: e.Metadata.Clone(),
		}
	}
	return prepared, nil
}
