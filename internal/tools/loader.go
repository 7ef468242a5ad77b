package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/loader"
)

// LoadPromptFileTool handles the load_prompt_file MCP tool.
type LoadPromptFileTool struct {
	session *loader.Session
}

// NewLoadPromptFileTool creates a LoadPromptFileTool with the given session.
func NewLoadPromptFileTool(session *loader.Session) *LoadPromptFileTool {
	return &LoadPromptFileTool{session: session}
}

// Definition returns the MCP tool definition for load_prompt_file.
func (t *LoadPromptFileTool) Definition() mcp.Tool {
	return mcp.NewTool("load_prompt_file",
		mcp.WithDescription(
			"Load a prompt file from the prompts directory by its header id, "+
				"enforcing the echo-emoji contract: echo the returned emoji to "+
				"prove the prompt entered context. Repeat loads are served from "+
				"the session cache.",
		),
		mcp.WithString("prompt_id",
			mcp.Required(),
			mcp.Description("The prompt id declared in the file header, e.g. 'CORE'"),
		),
		mcp.WithBoolean("force_reload",
			mcp.Description("Re-read the file even if cached (default: false)"),
		),
	)
}

// Handle processes the load_prompt_file tool call.
func (t *LoadPromptFileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	promptID := req.GetString("prompt_id", "")
	if promptID == "" {
		return mcp.NewToolResultError("'prompt_id' is required"), nil
	}

	prompt, err := t.session.LoadPrompt(promptID, boolArg(req, "force_reload", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(prompt), nil
}

// LoadIndexTool handles the load_index MCP tool.
type LoadIndexTool struct {
	session *loader.Session
}

// NewLoadIndexTool creates a LoadIndexTool with the given session.
func NewLoadIndexTool(session *loader.Session) *LoadIndexTool {
	return &LoadIndexTool{session: session}
}

// Definition returns the MCP tool definition for load_index.
func (t *LoadIndexTool) Definition() mcp.Tool {
	return mcp.NewTool("load_index",
		mcp.WithDescription(
			"Load the prompt index file (00_INDEX.md), enforcing the size "+
				"cap. An oversized index is returned with a pruning warning. "+
				"If the index declares an emoji, echo it back.",
		),
	)
}

// Handle processes the load_index tool call.
func (t *LoadIndexTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := t.session.LoadIndex()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return jsonResult(map[string]string{"error": err.Error()}), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("load index failed: %v", err)), nil
	}
	return jsonResult(index), nil
}

// ListPromptFilesTool handles the list_prompt_files MCP tool.
type ListPromptFilesTool struct {
	session *loader.Session
}

// NewListPromptFilesTool creates a ListPromptFilesTool with the given session.
func NewListPromptFilesTool(session *loader.Session) *ListPromptFilesTool {
	return &ListPromptFilesTool{session: session}
}

// Definition returns the MCP tool definition for list_prompt_files.
func (t *ListPromptFilesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_prompt_files",
		mcp.WithDescription(
			"List prompt files in the prompts directory with their ids, "+
				"emoji, category, and token estimates.",
		),
		mcp.WithString("category",
			mcp.Description("Filter by category (first directory component, or 'root')"),
		),
	)
}

// Handle processes the list_prompt_files tool call.
func (t *ListPromptFilesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	listing, err := t.session.ListPrompts(req.GetString("category", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing failed: %v", err)), nil
	}
	return jsonResult(listing), nil
}

// ValidatePromptsTool handles the validate_prompts MCP tool.
type ValidatePromptsTool struct {
	session *loader.Session
}

// NewValidatePromptsTool creates a ValidatePromptsTool with the given session.
func NewValidatePromptsTool(session *loader.Session) *ValidatePromptsTool {
	return &ValidatePromptsTool{session: session}
}

// Definition returns the MCP tool definition for validate_prompts.
func (t *ValidatePromptsTool) Definition() mcp.Tool {
	return mcp.NewTool("validate_prompts",
		mcp.WithDescription(
			"Validate every prompt file: header completeness (id and emoji), "+
				"oversized files, and the index size cap.",
		),
	)
}

// Handle processes the validate_prompts tool call.
func (t *ValidatePromptsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := t.session.Validate()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validation failed: %v", err)), nil
	}
	return jsonResult(report), nil
}

// SessionStatsTool handles the get_session_stats MCP tool.
type SessionStatsTool struct {
	session *loader.Session
}

// NewSessionStatsTool creates a SessionStatsTool with the given session.
func NewSessionStatsTool(session *loader.Session) *SessionStatsTool {
	return &SessionStatsTool{session: session}
}

// Definition returns the MCP tool definition for get_session_stats.
func (t *SessionStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_session_stats",
		mcp.WithDescription(
			"Report prompt loading activity for this session: cached "+
				"prompts, token totals, recent load history, and cache hits.",
		),
	)
}

// Handle processes the get_session_stats tool call.
func (t *SessionStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(t.session.Stats()), nil
}
