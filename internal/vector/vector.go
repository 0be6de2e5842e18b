// Package vector provides the numeric primitives for similarity search.
package vector

import (
	"errors"
	"math"
)

var (
	// ErrDimensionMismatch is returned when two vectors have different lengths.
	ErrDimensionMismatch = errors.New("vector dimensions do not match")

	// ErrZeroMagnitude is returned when a vector has zero magnitude.
	ErrZeroMagnitude = errors.New("vector has zero magnitude")
)

// CosineSimilarity computes the cosine similarity between two vectors.
// The result is in [-1, 1] for real inputs and is not clamped, so exact
// identity cases (v vs v, v vs -v) compare equal to 1 and -1.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, ErrZeroMagnitude
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Normalize returns v scaled to unit length.
func Normalize(v []float32) ([]float32, error) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return nil, ErrZeroMagnitude
	}

	mag := math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out, nil
}
