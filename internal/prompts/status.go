package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the promptops-status MCP prompt.
// It instructs the AI to summarize the registry and progress queue.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("promptops-status",
		mcp.WithPromptDescription(
			"Check the state of your prompt library and progress queue. "+
				"Shows what is available, what is loaded, and what work is "+
				"still pending.",
		),
	)
}

// Handle processes the promptops-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Prompt library status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please check my prompt library status.\n\n" +
						"1. Run `list_available` and summarize the builtin and custom prompts\n" +
						"2. Run `progress_list` and show any pending items, sticky ones first\n" +
						"3. Run `get_session_stats` and report what this session has loaded so far\n" +
						"4. Tell me if anything pending looks like it should be picked up next",
				),
			},
		},
	}, nil
}
