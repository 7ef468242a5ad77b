package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/registry"
)

// SavePromptTool handles the save_prompt MCP tool.
type SavePromptTool struct {
	reg *registry.Store
}

// NewSavePromptTool creates a SavePromptTool with the given registry.
func NewSavePromptTool(reg *registry.Store) *SavePromptTool {
	return &SavePromptTool{reg: reg}
}

// Definition returns the MCP tool definition for save_prompt.
func (t *SavePromptTool) Definition() mcp.Tool {
	return mcp.NewTool("save_prompt",
		mcp.WithDescription(
			"Save a custom prompt to the registry. Provide either inline "+
				"content or a file path (file-backed prompts re-read the file "+
				"on every load, so they stay current). Names must be unique.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Unique name for the prompt"),
		),
		mcp.WithString("content",
			mcp.Description("Prompt content (mutually exclusive with file_path)"),
		),
		mcp.WithString("file_path",
			mcp.Description("Path to a prompt file (mutually exclusive with content)"),
		),
		mcp.WithString("tags",
			mcp.Description("JSON array of tags for categorization, e.g. \"[\\\"team\\\", \\\"review\\\"]\""),
		),
		mcp.WithString("parent_prompts",
			mcp.Description("JSON array of prompt names this one derives from"),
		),
	)
}

// Handle processes the save_prompt tool call.
func (t *SavePromptTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	tags, err := stringListArg(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parents, err := stringListArg(req, "parent_prompts")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	saved, err := t.reg.Save(registry.SaveParams{
		Name:          name,
		Content:       req.GetString("content", ""),
		FilePath:      req.GetString("file_path", ""),
		Tags:          tags,
		ParentPrompts: parents,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save failed: %v", err)), nil
	}

	return jsonResult(saved), nil
}
