package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/compose"
)

// starterPrompts is the curated pack loaded by bootstrap_session.
var starterPrompts = []string{
	"ask_plan_act",    // core methodology
	"quality_axioms",  // quality principles
	"context_economy", // token efficiency
	"safe_coding",     // security practices
}

// starterCapabilities describes what each starter prompt enables.
var starterCapabilities = map[string]string{
	"ask_plan_act":    "Ask->Plan->Act methodology for structured problem solving",
	"quality_axioms":  "Quality principles for robust implementations",
	"context_economy": "Context-aware loading to optimize token usage",
	"safe_coding":     "Security best practices for safe code generation",
}

// BootstrapTool handles the bootstrap_session MCP tool.
type BootstrapTool struct {
	composer *compose.Composer
}

// NewBootstrapTool creates a BootstrapTool with the given composer.
func NewBootstrapTool(composer *compose.Composer) *BootstrapTool {
	return &BootstrapTool{composer: composer}
}

// Definition returns the MCP tool definition for bootstrap_session.
func (t *BootstrapTool) Definition() mcp.Tool {
	return mcp.NewTool("bootstrap_session",
		mcp.WithDescription(
			"RECOMMENDED FIRST CALL: load the curated starter pack of "+
				"prompts (methodology, quality, context economy, safe coding) "+
				"as a single deduplicated composition, with a quick reference "+
				"for the rest of the toolset.",
		),
	)
}

// Handle processes the bootstrap_session tool call.
func (t *BootstrapTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := t.composer.Compose(compose.Request{
		Refs:        starterPrompts,
		Deduplicate: true,
		Separator:   "\n\n" + strings.Repeat("=", 60) + "\n\n",
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to bootstrap session: %v", err)), nil
	}

	var loaded, capabilities []string
	for _, src := range result.Sources {
		loaded = append(loaded, "✓ "+src.Ref)
		if desc, ok := starterCapabilities[src.Ref]; ok {
			capabilities = append(capabilities, "• "+desc)
		}
	}

	return jsonResult(map[string]any{
		"status":               "Session bootstrapped successfully",
		"loaded_prompts":       loaded,
		"tokens_loaded":        result.Tokens,
		"capabilities_enabled": capabilities,
		"content":              result.Content,
		"quick_reference": map[string]any{
			"core_tools": []string{
				"get_prompt(name) - Load specific prompts",
				"save_prompt(...) - Save custom prompts",
				"compose_prompts([...]) - Combine multiple prompts",
				"list_available() - See all available prompts",
			},
			"prompt_prefixes": []string{
				"builtin: ask_plan_act",
				"custom: your_saved_prompt",
				"file: ./path/to/prompt.md",
			},
			"next_steps": []string{
				"Use list_available() to explore more prompts",
				"Save team-specific prompts with save_prompt()",
				"Load additional prompts as needed with get_prompt()",
			},
		},
	}), nil
}
