package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/registry"
)

// GetPromptTool handles the get_prompt MCP tool.
type GetPromptTool struct {
	reg *registry.Store
}

// NewGetPromptTool creates a GetPromptTool with the given registry.
func NewGetPromptTool(reg *registry.Store) *GetPromptTool {
	return &GetPromptTool{reg: reg}
}

// Definition returns the MCP tool definition for get_prompt.
func (t *GetPromptTool) Definition() mcp.Tool {
	return mcp.NewTool("get_prompt",
		mcp.WithDescription(
			"Load a single prompt by name from the registry. "+
				"Builtin prompts are checked first, then custom saved prompts. "+
				"Usage is logged for analytics.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Prompt name, e.g. 'ask_plan_act' or a saved prompt name"),
		),
	)
}

// Handle processes the get_prompt tool call.
func (t *GetPromptTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	block, err := t.reg.Get(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prompt %q not found in registry", name)), nil
	}

	return jsonResult(block), nil
}
