package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/prune"
)

// PruneMemoryTool handles the prune_memory MCP tool.
type PruneMemoryTool struct {
	pruner *prune.Pruner
}

// NewPruneMemoryTool creates a PruneMemoryTool with the given pruner.
func NewPruneMemoryTool(pruner *prune.Pruner) *PruneMemoryTool {
	return &PruneMemoryTool{pruner: pruner}
}

// Definition returns the MCP tool definition for prune_memory.
func (t *PruneMemoryTool) Definition() mcp.Tool {
	return mcp.NewTool("prune_memory",
		mcp.WithDescription(
			"Prune the oldest lines from the memory bank's progress file, "+
				"optionally archiving them under a dated file so nothing is "+
				"silently lost.",
		),
		mcp.WithNumber("count",
			mcp.Description("Number of lines to prune (default: 10)"),
		),
		mcp.WithBoolean("archive",
			mcp.Description("Save pruned lines to the archive (default: true)"),
		),
		mcp.WithString("archive_path",
			mcp.Description("Custom archive path (default: memory-bank/archive/YYYY-MM-DD.md)"),
		),
	)
}

// Handle processes the prune_memory tool call.
func (t *PruneMemoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := t.pruner.Prune(prune.Params{
		Count:       intArg(req, "count", 10),
		Archive:     boolArg(req, "archive", true),
		ArchivePath: req.GetString("archive_path", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("prune failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"status":      "success",
		"pruned":      result.Pruned,
		"remaining":   result.Remaining,
		"archived_to": result.ArchivedTo,
	}), nil
}
