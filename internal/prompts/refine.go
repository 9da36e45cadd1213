// Package prompts carries the LLM prompt templates used by the generation
// pipeline and the MCP prompt handlers exposed to clients.
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

// RefinePrompt handles the refine-idea MCP prompt.
// It guides the AI to sharpen a raw startup idea before generation.
type RefinePrompt struct{}

// NewRefinePrompt creates a RefinePrompt.
func NewRefinePrompt() *RefinePrompt {
	return &RefinePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *RefinePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("refine-idea",
		mcp.WithPromptDescription(
			"Refine a raw startup idea into a form that produces a strong "+
				"plan: clarify the audience, the problem, and the wedge, "+
				"then hand the result to generate_plan.",
		),
		mcp.WithArgument("idea",
			mcp.ArgumentDescription("The raw startup idea to refine"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the refine-idea prompt request.
func (p *RefinePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	idea := ""
	if args := req.Params.Arguments; args != nil {
		idea = args["idea"]
	}
	if idea == "" {
		return nil, fmt.Errorf("prompts: refine-idea requires an idea argument")
	}

	return &mcp.GetPromptResult{
		Description: "Refine Startup Idea",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to turn this startup idea into an MVP plan:\n\n"+
						"> %s\n\n"+
						"Before generating anything:\n"+
						"1. Ask me up to three questions that would most change the plan (audience, problem, monetization)\n"+
						"2. Rewrite the idea in one tight paragraph incorporating my answers\n"+
						"3. Run `validate_idea` on the rewritten version\n"+
						"4. If it validates, call `generate_plan` with it and report the archive path",
					idea,
				)),
			},
		},
	}, nil
}
