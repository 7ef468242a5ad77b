package tools

import (
	"context"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/compose"
	"github.com/shippopotamus/promptops/internal/registry"
)

// contextWindowTokens is the reference window size used for the
// usage-percentage heuristic.
const contextWindowTokens = 200000

// EstimateTool handles the estimate_context MCP tool.
type EstimateTool struct {
	reg      *registry.Store
	composer *compose.Composer
}

// NewEstimateTool creates an EstimateTool with its dependencies.
func NewEstimateTool(reg *registry.Store, composer *compose.Composer) *EstimateTool {
	return &EstimateTool{reg: reg, composer: composer}
}

// Definition returns the MCP tool definition for estimate_context.
func (t *EstimateTool) Definition() mcp.Tool {
	return mcp.NewTool("estimate_context",
		mcp.WithDescription(
			"Estimate token count for direct content or a set of prompt "+
				"references. Character-ratio approximation, not a tokenizer. "+
				"Includes context-window percentage and loading recommendations.",
		),
		mcp.WithString("content",
			mcp.Description("Direct content to estimate (mutually exclusive with prompt_refs)"),
		),
		mcp.WithString("prompt_refs",
			mcp.Description("JSON array of prompt references to estimate (mutually exclusive with content)"),
		),
	)
}

// Handle processes the estimate_context tool call.
func (t *EstimateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	refs, err := stringListArg(req, "prompt_refs")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if content == "" && len(refs) == 0 {
		return mcp.NewToolResultError("must provide either 'content' or 'prompt_refs'"), nil
	}
	if content != "" && len(refs) > 0 {
		return mcp.NewToolResultError("provide either 'content' or 'prompt_refs', not both"), nil
	}

	if content != "" {
		tokens := t.composer.Estimate(content)
		return jsonResult(map[string]any{
			"tokens":                       tokens,
			"characters":                   len(content),
			"estimated_context_percentage": contextPercentage(tokens),
			"fits_in_small_context":        tokens < 4000,
			"fits_in_medium_context":       tokens < 20000,
			"fits_in_large_context":        tokens < 100000,
		}), nil
	}

	var (
		breakdown   []map[string]any
		errs        []compose.RefError
		totalTokens int
		blocks      []compose.TextBlock
	)
	for _, ref := range refs {
		block, err := t.reg.Resolve(ref)
		if err != nil {
			errs = append(errs, compose.RefError{Ref: ref, Error: err.Error()})
			continue
		}
		blocks = append(blocks, block)
		totalTokens += block.Tokens
	}
	for _, block := range blocks {
		pct := 0.0
		if totalTokens > 0 {
			pct = round1(float64(block.Tokens) / float64(totalTokens) * 100)
		}
		breakdown = append(breakdown, map[string]any{
			"ref":        block.Ref,
			"tokens":     block.Tokens,
			"percentage": pct,
		})
	}

	return jsonResult(map[string]any{
		"total_tokens":                 totalTokens,
		"breakdown":                    breakdown,
		"errors":                       errs,
		"estimated_context_percentage": contextPercentage(totalTokens),
		"recommendations":              tokenRecommendations(totalTokens),
	}), nil
}

func contextPercentage(tokens int) float64 {
	return round1(float64(tokens) / contextWindowTokens * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// tokenRecommendations maps a token count to loading advice.
func tokenRecommendations(tokens int) []string {
	var recs []string
	switch {
	case tokens > 100000:
		recs = append(recs, "Very large context - consider splitting into multiple interactions")
	case tokens > 50000:
		recs = append(recs, "Large context - ensure all content is necessary")
	case tokens > 20000:
		recs = append(recs, "Moderate context - good for detailed work")
	}
	if tokens > 10000 {
		recs = append(recs, "Consider using compose_prompts with deduplication")
	}
	return recs
}
