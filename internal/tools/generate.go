// Package tools implements the MCP tool handlers.
//
// Each tool is a struct that receives its dependencies, exposes a
// Definition for registration, and a Handle compatible with mcp-go's
// CallToolRequest signature. One file per tool.
package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planforge/planforge/internal/store"
)

// Generator runs a full generation: validation, pipeline, packaging.
type Generator interface {
	Generate(ctx context.Context, idea string) (*store.Session, string, error)
}

// GenerateTool handles the generate_plan MCP tool.
type GenerateTool struct {
	generator Generator
}

// NewGenerateTool creates a GenerateTool.
func NewGenerateTool(g Generator) *GenerateTool {
	return &GenerateTool{generator: g}
}

// Definition returns the MCP tool definition for registration.
func (t *GenerateTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_plan",
		mcp.WithDescription(
			"Turn a startup idea into a packaged zip of markdown planning "+
				"documents: overview, features, architecture, design, user "+
				"flow, roadmap, business model, and testing plan. Research "+
				"and drafting run through the Gemini API, so this takes a "+
				"few minutes.",
		),
		mcp.WithString("idea",
			mcp.Required(),
			mcp.Description("The startup idea, 10 to 1000 characters"),
		),
	)
}

// Handle processes the generate_plan tool call.
func (t *GenerateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idea := req.GetString("idea", "")
	if idea == "" {
		return mcp.NewToolResultError("'idea' is required"), nil
	}

	sess, zipPath, err := t.generator.Generate(ctx, idea)
	if err != nil {
		if sess != nil {
			return mcp.NewToolResultError(fmt.Sprintf(
				"generation failed (session %s): %v", sess.ID, err,
			)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Plan generated.\n\nSession: %s\nArchive: %s\n\n"+
			"Unzip the archive and start with README.md.",
		sess.ID, zipPath,
	)), nil
}
