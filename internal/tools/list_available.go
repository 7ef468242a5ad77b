package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/registry"
)

// ListAvailableTool handles the list_available MCP tool.
type ListAvailableTool struct {
	reg *registry.Store
}

// NewListAvailableTool creates a ListAvailableTool with the given registry.
func NewListAvailableTool(reg *registry.Store) *ListAvailableTool {
	return &ListAvailableTool{reg: reg}
}

// Definition returns the MCP tool definition for list_available.
func (t *ListAvailableTool) Definition() mcp.Tool {
	return mcp.NewTool("list_available",
		mcp.WithDescription(
			"List all available prompts: the builtin library grouped by "+
				"category, and custom saved prompts ordered by usage.",
		),
		mcp.WithBoolean("include_builtins",
			mcp.Description("Include the builtin prompt library (default: true)"),
		),
		mcp.WithBoolean("include_custom",
			mcp.Description("Include custom saved prompts (default: true)"),
		),
		mcp.WithString("tags",
			mcp.Description("JSON array of tags to filter custom prompts (match any)"),
		),
	)
}

// Handle processes the list_available tool call.
func (t *ListAvailableTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := stringListArg(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := map[string]any{
		"builtins": map[string][]registry.BuiltinPrompt{},
		"custom":   []registry.CustomInfo{},
	}
	total := 0

	if boolArg(req, "include_builtins", true) {
		catalog := registry.BuiltinCatalog()
		result["builtins"] = catalog
		for _, prompts := range catalog {
			total += len(prompts)
		}
	}

	if boolArg(req, "include_custom", true) {
		custom, err := t.reg.ListCustom(tags)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing custom prompts: %v", err)), nil
		}
		if custom == nil {
			custom = []registry.CustomInfo{}
		}
		result["custom"] = custom
		total += len(custom)
	}

	result["total"] = total
	return jsonResult(result), nil
}
