package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planforge/planforge/internal/validate"
)

// ValidateTool handles the validate_idea MCP tool.
type ValidateTool struct{}

// NewValidateTool creates a ValidateTool.
func NewValidateTool() *ValidateTool {
	return &ValidateTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("validate_idea",
		mcp.WithDescription(
			"Check whether a startup idea is ready for generate_plan: "+
				"length limits, content rules, and the sanitized form that "+
				"would actually be used.",
		),
		mcp.WithString("idea",
			mcp.Required(),
			mcp.Description("The startup idea to check"),
		),
	)
}

// Handle processes the validate_idea tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idea := req.GetString("idea", "")
	if idea == "" {
		return mcp.NewToolResultError("'idea' is required"), nil
	}

	sanitized := validate.SanitizeIdea(idea)
	if err := validate.Idea(sanitized); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Not ready: %v\n\nSanitized form: %q", err, sanitized,
		)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Ready for generate_plan.\n\nSanitized form: %q", sanitized,
	)), nil
}
