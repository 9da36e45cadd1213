package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planforge/planforge/internal/store"
)

// SessionReader is the slice of the store the session tools need.
type SessionReader interface {
	GetSession(id string) (*store.Session, error)
	ListSessions(limit int) ([]store.Session, error)
}

// GetSessionTool handles the get_session MCP tool.
type GetSessionTool struct {
	sessions SessionReader
}

// NewGetSessionTool creates a GetSessionTool.
func NewGetSessionTool(r SessionReader) *GetSessionTool {
	return &GetSessionTool{sessions: r}
}

// Definition returns the MCP tool definition for registration.
func (t *GetSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("get_session",
		mcp.WithDescription(
			"Fetch one plan generation session by id: its status, current "+
				"phase, archive path, and any error.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Session id returned by generate_plan"),
		),
	)
}

// Handle processes the get_session tool call.
func (t *GetSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	sess, err := t.sessions.GetSession(id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no session with id %s", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ListSessionsTool handles the list_sessions MCP tool.
type ListSessionsTool struct {
	sessions SessionReader
}

// NewListSessionsTool creates a ListSessionsTool.
func NewListSessionsTool(r SessionReader) *ListSessionsTool {
	return &ListSessionsTool{sessions: r}
}

// Definition returns the MCP tool definition for registration.
func (t *ListSessionsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_sessions",
		mcp.WithDescription("List recent plan generation sessions, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum sessions to return. Defaults to 20."),
		),
	)
}

// Handle processes the list_sessions tool call.
func (t *ListSessionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	sessions, err := t.sessions.ListSessions(limit)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		return mcp.NewToolResultText("No sessions yet. Run generate_plan to create one."), nil
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding sessions: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
