package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/guard"
)

// DedupGuardTool handles the tool_dedup_guard MCP tool.
type DedupGuardTool struct {
	guard *guard.Guard
}

// NewDedupGuardTool creates a DedupGuardTool with the given guard.
func NewDedupGuardTool(g *guard.Guard) *DedupGuardTool {
	return &DedupGuardTool{guard: g}
}

// Definition returns the MCP tool definition for tool_dedup_guard.
func (t *DedupGuardTool) Definition() mcp.Tool {
	return mcp.NewTool("tool_dedup_guard",
		mcp.WithDescription(
			"Check whether a tool call is safe to execute: flags repeats of "+
				"the same tool and parameters within the TTL window, and "+
				"enforces the safe-write rule (write_file requires a prior "+
				"register_file_read of the target path). Safe calls are logged.",
		),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Name of the tool about to be called"),
		),
		mcp.WithString("params",
			mcp.Description("JSON object of the tool's parameters"),
		),
		mcp.WithString("session_id",
			mcp.Description("Optional session identifier"),
		),
		mcp.WithNumber("ttl_seconds",
			mcp.Description("Dedup window in seconds (default: 300)"),
		),
	)
}

// Handle processes the tool_dedup_guard tool call.
func (t *DedupGuardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolName := req.GetString("tool_name", "")
	if toolName == "" {
		return mcp.NewToolResultError("'tool_name' is required"), nil
	}
	params, err := mapArg(req, "params")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	verdict, err := t.guard.Check(
		toolName,
		params,
		req.GetString("session_id", ""),
		time.Duration(intArg(req, "ttl_seconds", 300))*time.Second,
	)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("guard check failed: %v", err)), nil
	}
	return jsonResult(verdict), nil
}

// RegisterReadTool handles the register_file_read MCP tool.
type RegisterReadTool struct {
	guard *guard.Guard
}

// NewRegisterReadTool creates a RegisterReadTool with the given guard.
func NewRegisterReadTool(g *guard.Guard) *RegisterReadTool {
	return &RegisterReadTool{guard: g}
}

// Definition returns the MCP tool definition for register_file_read.
func (t *RegisterReadTool) Definition() mcp.Tool {
	return mcp.NewTool("register_file_read",
		mcp.WithDescription(
			"Register that a file has been read, satisfying the safe-write "+
				"rule for subsequent write_file calls on the same path.",
		),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path of the file that was read"),
		),
	)
}

// Handle processes the register_file_read tool call.
func (t *RegisterReadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("file_path", "")
	if path == "" {
		return mcp.NewToolResultError("'file_path' is required"), nil
	}

	timestamp, err := t.guard.RegisterRead(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("register read failed: %v", err)), nil
	}
	return jsonResult(map[string]string{"status": "success", "timestamp": timestamp}), nil
}

// ClearDedupTool handles the clear_dedup_log MCP tool.
type ClearDedupTool struct {
	guard *guard.Guard
}

// NewClearDedupTool creates a ClearDedupTool with the given guard.
func NewClearDedupTool(g *guard.Guard) *ClearDedupTool {
	return &ClearDedupTool{guard: g}
}

// Definition returns the MCP tool definition for clear_dedup_log.
func (t *ClearDedupTool) Definition() mcp.Tool {
	return mcp.NewTool("clear_dedup_log",
		mcp.WithDescription("Clear old entries from the deduplication log."),
		mcp.WithNumber("older_than_seconds",
			mcp.Description("Remove entries older than this many seconds (default: 3600)"),
		),
	)
}

// Handle processes the clear_dedup_log tool call.
func (t *ClearDedupTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	age := time.Duration(intArg(req, "older_than_seconds", 3600)) * time.Second
	stats, err := t.guard.ClearOlderThan(age)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("clear failed: %v", err)), nil
	}
	return jsonResult(stats), nil
}
