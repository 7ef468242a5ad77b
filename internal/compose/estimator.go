// Package compose implements the prompt composition engine: token
// estimation, paragraph-level deduplication, and token-budget trimming.
//
// Composition is a pure computation over resolved prompt contents. The
// registry lookup is injected through the Resolver interface so this
// package never touches storage directly.
package compose

// DefaultTokenRatio is the character-to-token ratio used when no ratio
// is configured. Roughly 4 characters per token.
const DefaultTokenRatio = 0.25

// EstimateTokens approximates a token count from character length.
// This is not a real tokenizer: the fixed ratio keeps estimates
// deterministic and compatible with token counts already persisted in
// the registry. Empty text yields 0.
func EstimateTokens(text string, ratio float64) int {
	if ratio <= 0 {
		ratio = DefaultTokenRatio
	}
	return int(float64(len(text)) * ratio)
}
