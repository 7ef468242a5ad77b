// Package embeddings implements semantic prompt discovery: vector
// generation, persistence, and cosine-similarity ranking.
//
// Embedding generation is pluggable. An external model (Ollama) is used
// when reachable; otherwise a deterministic hash-based provider stands
// in, so caching and tests are well-defined without the optional
// dependency.
package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DefaultDimensions is the fixed vector dimension for the index.
// Matches the all-MiniLM-L6-v2 family so a model-backed provider and
// the fallback produce interchangeable storage rows.
const DefaultDimensions = 384

// Provider generates fixed-length embedding vectors for text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
	Dimensions() int
}

// HashProvider derives a vector deterministically from a cryptographic
// hash of the text. It is a pure function: identical input always
// yields a bit-identical vector. The vectors carry no semantic signal;
// they exist so similarity search, caching, and tests behave
// consistently when no embedding model is available.
type HashProvider struct {
	dims int
}

// NewHashProvider creates a HashProvider with the given dimension.
// Non-positive dimensions fall back to DefaultDimensions.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashProvider{dims: dims}
}

// Model identifies the fallback algorithm in persisted records.
func (h *HashProvider) Model() string { return "hash-fallback" }

// Dimensions returns the fixed output dimension.
func (h *HashProvider) Dimensions() int { return h.dims }

// Embed converts the sha256 hex digest of text into fixed-point values:
// each consecutive hex byte pair becomes value/255 - 0.5, giving
// components in [-0.5, 0.5], zero-padded (or truncated) to the
// configured dimension. Never fails.
func (h *HashProvider) Embed(_ context.Context, text string) ([]float64, error) {
	sum := sha256.Sum256([]byte(text))
	digest := hex.EncodeToString(sum[:])

	vec := make([]float64, 0, h.dims)
	for i := 0; i+2 <= len(digest) && len(vec) < h.dims; i += 2 {
		b, err := strconv.ParseUint(digest[i:i+2], 16, 8)
		if err != nil {
			// Hex output of EncodeToString cannot fail to parse.
			continue
		}
		vec = append(vec, float64(b)/255.0-0.5)
	}
	for len(vec) < h.dims {
		vec = append(vec, 0.0)
	}
	return vec, nil
}
