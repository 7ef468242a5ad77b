package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/progress"
)

// ProgressPushTool handles the progress_push MCP tool.
type ProgressPushTool struct {
	queue *progress.Queue
}

// NewProgressPushTool creates a ProgressPushTool with the given queue.
func NewProgressPushTool(queue *progress.Queue) *ProgressPushTool {
	return &ProgressPushTool{queue: queue}
}

// Definition returns the MCP tool definition for progress_push.
func (t *ProgressPushTool) Definition() mcp.Tool {
	return mcp.NewTool("progress_push",
		mcp.WithDescription(
			"Add an item to the cross-session progress queue. "+
				"Importance 0 items are popped FIFO; importance > 0 items are "+
				"sticky and stay until completed explicitly.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The task or progress item to track"),
		),
		mcp.WithNumber("importance",
			mcp.Description("0 = normal (poppable), >0 = sticky (default: 0)"),
		),
		mcp.WithString("tags",
			mcp.Description("JSON array of tags for categorization"),
		),
	)
}

// Handle processes the progress_push tool call.
func (t *ProgressPushTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}
	tags, err := stringListArg(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	receipt, err := t.queue.Push(content, intArg(req, "importance", 0), tags)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("push failed: %v", err)), nil
	}
	return jsonResult(receipt), nil
}

// ProgressPopTool handles the progress_pop MCP tool.
type ProgressPopTool struct {
	queue *progress.Queue
}

// NewProgressPopTool creates a ProgressPopTool with the given queue.
func NewProgressPopTool(queue *progress.Queue) *ProgressPopTool {
	return &ProgressPopTool{queue: queue}
}

// Definition returns the MCP tool definition for progress_pop.
func (t *ProgressPopTool) Definition() mcp.Tool {
	return mcp.NewTool("progress_pop",
		mcp.WithDescription(
			"Remove and return the oldest non-sticky item from the progress "+
				"queue, marking it completed.",
		),
	)
}

// Handle processes the progress_pop tool call.
func (t *ProgressPopTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	item, err := t.queue.Pop()
	if err != nil {
		if errors.Is(err, progress.ErrEmpty) {
			return jsonResult(map[string]string{"error": "empty"}), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("pop failed: %v", err)), nil
	}
	return jsonResult(item), nil
}

// ProgressListTool handles the progress_list MCP tool.
type ProgressListTool struct {
	queue *progress.Queue
}

// NewProgressListTool creates a ProgressListTool with the given queue.
func NewProgressListTool(queue *progress.Queue) *ProgressListTool {
	return &ProgressListTool{queue: queue}
}

// Definition returns the MCP tool definition for progress_list.
func (t *ProgressListTool) Definition() mcp.Tool {
	return mcp.NewTool("progress_list",
		mcp.WithDescription(
			"List items in the progress queue. Incomplete items sort first, "+
				"then by importance.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of items to return (default: 10)"),
		),
		mcp.WithBoolean("include_completed",
			mcp.Description("Include completed items (default: false)"),
		),
		mcp.WithString("tag_filter",
			mcp.Description("Only items carrying this tag"),
		),
	)
}

// Handle processes the progress_list tool call.
func (t *ProgressListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	listing, err := t.queue.List(progress.ListParams{
		Limit:            intArg(req, "limit", 10),
		IncludeCompleted: boolArg(req, "include_completed", false),
		TagFilter:        req.GetString("tag_filter", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(listing), nil
}

// ProgressCompleteTool handles the progress_complete MCP tool.
type ProgressCompleteTool struct {
	queue *progress.Queue
}

// NewProgressCompleteTool creates a ProgressCompleteTool with the given queue.
func NewProgressCompleteTool(queue *progress.Queue) *ProgressCompleteTool {
	return &ProgressCompleteTool{queue: queue}
}

// Definition returns the MCP tool definition for progress_complete.
func (t *ProgressCompleteTool) Definition() mcp.Tool {
	return mcp.NewTool("progress_complete",
		mcp.WithDescription("Mark a specific progress item as completed by id."),
		mcp.WithNumber("item_id",
			mcp.Required(),
			mcp.Description("The id of the item to complete"),
		),
	)
}

// Handle processes the progress_complete tool call.
func (t *ProgressCompleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := intArg(req, "item_id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("'item_id' is required and must be > 0"), nil
	}

	completedAt, err := t.queue.Complete(int64(id))
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrNotFound):
			return jsonResult(map[string]string{"error": "not_found"}), nil
		case errors.Is(err, progress.ErrAlreadyCompleted):
			return jsonResult(map[string]string{"error": "already_completed"}), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("complete failed: %v", err)), nil
	}
	return jsonResult(map[string]string{"status": "success", "completed_at": completedAt}), nil
}
