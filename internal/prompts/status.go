package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the plan-status MCP prompt.
// It instructs the AI to read and present recent generation sessions.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("plan-status",
		mcp.WithPromptDescription(
			"Check recent plan generation sessions: what finished, "+
				"what failed, and where the archives landed.",
		),
	)
}

// Handle processes the plan-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Plan Generation Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `list_sessions` to check my recent plan generations.\n\n" +
						"Then:\n" +
						"1. Show each session with its status and current phase\n" +
						"2. For completed sessions, point me at the archive path\n" +
						"3. For failed sessions, explain the error and whether retrying makes sense",
				),
			},
		},
	}, nil
}
