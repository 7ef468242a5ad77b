package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/compose"
)

// SmartComposeTool handles the compose_smart MCP tool. It chains
// discovery and composition: the task description selects the most
// relevant principles and workflow, which are then composed with
// deduplication under an optional token budget.
type SmartComposeTool struct {
	discover *DiscoverTool
	composer *compose.Composer
}

// NewSmartComposeTool creates a SmartComposeTool with its dependencies.
func NewSmartComposeTool(discover *DiscoverTool, composer *compose.Composer) *SmartComposeTool {
	return &SmartComposeTool{discover: discover, composer: composer}
}

// Definition returns the MCP tool definition for compose_smart.
func (t *SmartComposeTool) Definition() mcp.Tool {
	return mcp.NewTool("compose_smart",
		mcp.WithDescription(
			"Intelligently compose prompts for a task: discovers relevant "+
				"prompts, selects the best combination of principles and "+
				"workflows, and composes them with deduplication under an "+
				"optional token budget.",
		),
		mcp.WithString("task_description",
			mcp.Required(),
			mcp.Description("What you want to accomplish"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Token budget for the composition (default: unlimited)"),
		),
		mcp.WithBoolean("include_principles",
			mcp.Description("Include guiding principles (default: true)"),
		),
		mcp.WithBoolean("include_workflows",
			mcp.Description("Include task workflows (default: true)"),
		),
	)
}

// smartSelection records which prompts the tool picked and why.
type smartSelection struct {
	Principles      []string           `json:"principles"`
	Workflows       []string           `json:"workflows"`
	RelevanceScores map[string]float64 `json:"relevance_scores"`
}

// smartMetadata annotates a smart composition result.
type smartMetadata struct {
	Task               string         `json:"task"`
	SelectedComponents smartSelection `json:"selected_components"`
	SelectionReasoning string         `json:"selection_reasoning"`
	AverageRelevance   float64        `json:"average_relevance"`
}

// Handle processes the compose_smart tool call.
func (t *SmartComposeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := req.GetString("task_description", "")
	if task == "" {
		return mcp.NewToolResultError("'task_description' is required"), nil
	}

	principles, workflows, err := t.discover.discover(ctx, task)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discovery failed: %v", err)), nil
	}

	// Top two principles and one workflow keep the composition lean.
	selection := smartSelection{
		Principles:      []string{},
		Workflows:       []string{},
		RelevanceScores: map[string]float64{},
	}
	var refs []string
	if boolArg(req, "include_principles", true) {
		for i, p := range principles {
			if i == 2 {
				break
			}
			refs = append(refs, p.Name)
			selection.Principles = append(selection.Principles, p.Name)
			selection.RelevanceScores[p.Name] = p.Relevance
		}
	}
	if boolArg(req, "include_workflows", true) {
		if len(workflows) > 0 {
			w := workflows[0]
			refs = append(refs, w.Name)
			selection.Workflows = append(selection.Workflows, w.Name)
			selection.RelevanceScores[w.Name] = w.Relevance
		}
	}

	if len(refs) == 0 {
		return jsonResult(map[string]string{
			"error":      "No relevant prompts found for task",
			"task":       task,
			"suggestion": "Try a more specific task description or browse with list_available()",
		}), nil
	}

	result, err := t.composer.Compose(compose.Request{
		Refs:        refs,
		Deduplicate: true,
		MaxTokens:   intArg(req, "max_tokens", 0),
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

	var total float64
	for _, score := range selection.RelevanceScores {
		total += score
	}

	out := struct {
		*compose.Result
		SmartMetadata smartMetadata `json:"smart_metadata"`
		UsageTip      string        `json:"usage_tip,omitempty"`
	}{
		Result: result,
		SmartMetadata: smartMetadata{
			Task:               task,
			SelectedComponents: selection,
			SelectionReasoning: explainSelection(selection),
			AverageRelevance:   total / float64(len(selection.RelevanceScores)),
		},
		UsageTip: usageTip(selection),
	}
	return jsonResult(out), nil
}

// explainSelection summarizes why the selected prompts were picked.
func explainSelection(sel smartSelection) string {
	var parts []string
	if len(sel.Principles) > 0 {
		parts = append(parts, fmt.Sprintf("Selected %d principles for best practices and methodology", len(sel.Principles)))
	}
	if len(sel.Workflows) > 0 {
		parts = append(parts, fmt.Sprintf("Selected %d workflow(s) for task-specific guidance", len(sel.Workflows)))
	}
	var high []string
	for _, name := range append(append([]string{}, sel.Principles...), sel.Workflows...) {
		if sel.RelevanceScores[name] > 0.7 {
			high = append(high, name)
		}
	}
	if len(high) > 0 {
		parts = append(parts, "Particularly relevant: "+strings.Join(high, ", "))
	}
	if len(parts) == 0 {
		return "Selected based on relevance to task"
	}
	return strings.Join(parts, ". ")
}

// usageTip tells the caller how to apply what was loaded.
func usageTip(sel smartSelection) string {
	switch {
	case len(sel.Principles) > 0 && len(sel.Workflows) > 0:
		return "Loaded both principles and workflows. The principles will guide your approach while the workflow provides specific steps."
	case len(sel.Principles) > 0:
		return "Loaded guiding principles. Consider your specific implementation approach for this task."
	case len(sel.Workflows) > 0:
		return "Loaded task workflow. Follow the steps while keeping best practices in mind."
	}
	return ""
}
