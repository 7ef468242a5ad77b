// Package prompts implements MCP prompt handlers for the prompt
// management server.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the promptops-start MCP prompt.
// It guides the AI to bootstrap a session with the starter pack and,
// optionally, discover prompts for a described task.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("promptops-start",
		mcp.WithPromptDescription(
			"Start a working session with the core prompt library loaded. "+
				"Bootstraps the starter pack and, if you describe a task, "+
				"finds the prompts most relevant to it.",
		),
		mcp.WithArgument("task",
			mcp.ArgumentDescription("Optional description of what you're about to work on"),
		),
	)
}

// Handle processes the promptops-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	task := ""
	if args := req.Params.Arguments; args != nil {
		if t, ok := args["task"]; ok && t != "" {
			task = t
		}
	}

	text := "Please run `bootstrap_session` to load the core prompt library.\n\n" +
		"After loading, confirm which capabilities are active and follow " +
		"the loaded instructions for the rest of this session."
	description := "Bootstrap prompt session"
	if task != "" {
		text = fmt.Sprintf(
			"I'm about to work on: %s\n\n"+
				"Please:\n"+
				"1. Run `bootstrap_session` to load the core prompt library\n"+
				"2. Run `discover_prompts` with my task description to find relevant prompts\n"+
				"3. Load any recommended prompts with `compose_prompts`\n"+
				"4. Summarize which instructions are now active, then start on the task",
			task,
		)
		description = fmt.Sprintf("Bootstrap prompt session for: %s", task)
	}

	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
