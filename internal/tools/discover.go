package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// DiscoverTool handles the discover_prompts MCP tool. It layers
// categorized recommendations on top of the similarity search:
// principles guide HOW to work, workflows match WHAT to do.
type DiscoverTool struct {
	search *SearchTool
}

// NewDiscoverTool creates a DiscoverTool on top of the search tool.
func NewDiscoverTool(search *SearchTool) *DiscoverTool {
	return &DiscoverTool{search: search}
}

// Definition returns the MCP tool definition for discover_prompts.
func (t *DiscoverTool) Definition() mcp.Tool {
	return mcp.NewTool("discover_prompts",
		mcp.WithDescription(
			"Discover relevant prompts for a task. Analyzes the task "+
				"description and recommends principles (HOW to work) and "+
				"workflows (WHAT to do), with a ready-to-use compose command.",
		),
		mcp.WithString("task_description",
			mcp.Required(),
			mcp.Description("Description of the task you want to accomplish"),
		),
	)
}

// recommendation is one categorized discover result.
type recommendation struct {
	Name      string  `json:"name"`
	Relevance float64 `json:"relevance"`
	Reason    string  `json:"reason"`
}

// discover runs the relevance search and splits strong matches into
// principles and workflows. Shared with the smart composition tool.
func (t *DiscoverTool) discover(ctx context.Context, task string) (principles, workflows []recommendation, err error) {
	results, err := t.search.search(ctx, task, 10, 0.2)
	if err != nil {
		return nil, nil, err
	}

	for _, r := range results {
		if r.Similarity <= 0.4 { // higher bar for recommendations than raw search
			continue
		}
		rec := recommendation{
			Name:      r.Name,
			Relevance: r.Similarity,
			Reason:    truncate(r.Description, 100),
		}
		if strings.Contains(r.Description, "workflow") || strings.Contains(r.Name, "guide") {
			workflows = append(workflows, rec)
		} else {
			principles = append(principles, rec)
		}
	}
	return capRecs(principles, 3), capRecs(workflows, 2), nil
}

// Handle processes the discover_prompts tool call.
func (t *DiscoverTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := req.GetString("task_description", "")
	if task == "" {
		return mcp.NewToolResultError("'task_description' is required"), nil
	}

	principles, workflows, err := t.discover(ctx, task)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discovery failed: %v", err)), nil
	}

	out := map[string]any{
		"task":                   task,
		"recommended_principles": principles,
		"recommended_workflows":  workflows,
	}

	if len(principles) > 0 {
		var bootstrap []string
		for i, p := range principles {
			if i == 2 {
				break
			}
			bootstrap = append(bootstrap, p.Name)
		}
		if len(workflows) > 0 {
			bootstrap = append(bootstrap, workflows[0].Name)
		}
		out["suggested_bootstrap"] = bootstrap
		out["command"] = fmt.Sprintf("compose_prompts([\"%s\"])", strings.Join(bootstrap, "\", \""))
	}

	switch {
	case len(principles) == 0 && len(workflows) == 0:
		out["insight"] = "No highly relevant prompts found. Consider saving a custom prompt for this task type."
	case len(workflows) == 0:
		out["insight"] = "Found guiding principles but no specific workflows. You might want to create a workflow for this task."
	case len(principles) == 0:
		out["insight"] = "Found workflows but consider loading principles first for best practices."
	default:
		out["insight"] = "Found both principles and workflows. Use the suggested command to load them together."
	}

	return jsonResult(out), nil
}

func capRecs(recs []recommendation, n int) []recommendation {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
