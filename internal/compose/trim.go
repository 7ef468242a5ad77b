package compose

import "strings"

// TrimStats reports how many blocks survived a budget trim.
type TrimStats struct {
	KeptPrompts    int `json:"kept_prompts"`
	DroppedPrompts int `json:"dropped_prompts"`
}

// TrimToBudget greedily keeps whole content blocks, in input order, until
// the token budget is exhausted. Blocks are never split mid-content, so
// output stays syntactically coherent. A block that does not fit is
// dropped and iteration continues: later, smaller blocks may still fit
// after a large one was skipped.
func TrimToBudget(contents []string, maxTokens int, separator string, ratio float64) (string, TrimStats) {
	var kept []string
	var stats TrimStats
	current := 0

	for _, content := range contents {
		tokens := EstimateTokens(content, ratio)
		if current+tokens <= maxTokens {
			kept = append(kept, content)
			current += tokens
			stats.KeptPrompts++
		} else {
			stats.DroppedPrompts++
		}
	}

	return strings.Join(kept, separator), stats
}
