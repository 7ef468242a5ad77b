package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/compose"
	"github.com/shippopotamus/promptops/internal/registry"
)

// LoadPromptsTool handles the load_prompts MCP tool.
type LoadPromptsTool struct {
	reg *registry.Store
}

// NewLoadPromptsTool creates a LoadPromptsTool with the given registry.
func NewLoadPromptsTool(reg *registry.Store) *LoadPromptsTool {
	return &LoadPromptsTool{reg: reg}
}

// Definition returns the MCP tool definition for load_prompts.
func (t *LoadPromptsTool) Definition() mcp.Tool {
	return mcp.NewTool("load_prompts",
		mcp.WithDescription(
			"Load multiple prompts at once. Each reference resolves "+
				"independently; failures are collected per reference instead "+
				"of aborting the batch. Reference forms: bare name (builtin "+
				"first, then custom), 'builtin:<name>', 'custom:<name>', "+
				"'file:<path>'.",
		),
		mcp.WithString("prompt_refs",
			mcp.Required(),
			mcp.Description("JSON array of prompt references"),
		),
	)
}

// Handle processes the load_prompts tool call.
func (t *LoadPromptsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := stringListArg(req, "prompt_refs")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultError("'prompt_refs' is required and must not be empty"), nil
	}

	var (
		loaded      []compose.TextBlock
		errs        []compose.RefError
		totalTokens int
	)
	for _, ref := range refs {
		block, err := t.reg.Resolve(ref)
		if err != nil {
			errs = append(errs, compose.RefError{Ref: ref, Error: err.Error()})
			continue
		}
		loaded = append(loaded, block)
		totalTokens += block.Tokens
	}

	return jsonResult(map[string]any{
		"loaded":        loaded,
		"errors":        errs,
		"total_prompts": len(loaded),
		"total_tokens":  totalTokens,
		"success_rate":  fmt.Sprintf("%d/%d", len(loaded), len(refs)),
	}), nil
}
