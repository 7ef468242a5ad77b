package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/compose"
)

// ComposeTool handles the compose_prompts MCP tool.
type ComposeTool struct {
	composer *compose.Composer
}

// NewComposeTool creates a ComposeTool with the given composer.
func NewComposeTool(composer *compose.Composer) *ComposeTool {
	return &ComposeTool{composer: composer}
}

// Definition returns the MCP tool definition for compose_prompts.
func (t *ComposeTool) Definition() mcp.Tool {
	return mcp.NewTool("compose_prompts",
		mcp.WithDescription(
			"Compose multiple prompts into a single optimized prompt. "+
				"Resolves each reference, optionally removes duplicate paragraphs "+
				"across sources, and trims whole prompts to fit a token budget. "+
				"References that fail to resolve are reported without aborting "+
				"the composition.",
		),
		mcp.WithString("prompt_refs",
			mcp.Required(),
			mcp.Description(
				"JSON array of prompt references, e.g. "+
					"\"[\\\"ask_plan_act\\\", \\\"custom:my_rules\\\", \\\"file:./notes.md\\\"]\". "+
					"Bare names resolve builtin first, then custom.",
			),
		),
		mcp.WithBoolean("deduplicate",
			mcp.Description("Remove duplicate paragraphs across sources (default: true)"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Token budget; whole prompts are dropped to fit (default: unlimited)"),
		),
		mcp.WithString("separator",
			mcp.Description("Separator between composed prompts (default: \"\\n\\n---\\n\\n\")"),
		),
	)
}

// Handle processes the compose_prompts tool call.
func (t *ComposeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := stringListArg(req, "prompt_refs")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultError("'prompt_refs' is required and must not be empty"), nil
	}

	result, err := t.composer.Compose(compose.Request{
		Refs:        refs,
		Deduplicate: boolArg(req, "deduplicate", true),
		MaxTokens:   intArg(req, "max_tokens", 0),
		Separator:   req.GetString("separator", compose.DefaultSeparator),
	})
	if err != nil {
		var empty *compose.EmptyResultError
		if errors.As(err, &empty) {
			return jsonResult(map[string]any{
				"error":  "No prompts could be loaded",
				"errors": empty.Errors,
			}), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("composition failed: %v", err)), nil
	}

	return jsonResult(result), nil
}
