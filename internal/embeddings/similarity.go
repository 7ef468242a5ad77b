package embeddings

import "math"

// CosineSimilarity returns the normalized dot product of two vectors,
// in [-1, 1]. A zero-norm vector (such as a degenerate embedding) or a
// length mismatch yields 0 by convention, avoiding division by zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
