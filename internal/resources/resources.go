// Package resources implements MCP resource handlers.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (planforge://...) following MCP
// conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planforge/planforge/internal/store"
)

// SessionLister is the slice of the store the handler needs.
type SessionLister interface {
	ListSessions(limit int) ([]store.Session, error)
}

// ServiceLister reports which helper services are currently running.
type ServiceLister interface {
	Running() []string
}

// Handler manages the resource endpoints.
type Handler struct {
	sessions SessionLister
	services ServiceLister
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(sessions SessionLister, services ServiceLister) *Handler {
	return &Handler{sessions: sessions, services: services}
}

// SessionsResource returns the MCP resource definition for session
// history.
func (h *Handler) SessionsResource() mcp.Resource {
	return mcp.NewResource(
		"planforge://sessions/recent",
		"Recent Plan Generations",
		mcp.WithResourceDescription("The most recent plan generation sessions with status and archive paths"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSessions returns recent sessions as JSON.
func (h *Handler) HandleSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sessions, err := h.sessions.ListSessions(20)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling sessions: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ServicesResource returns the MCP resource definition for helper service
// health.
func (h *Handler) ServicesResource() mcp.Resource {
	return mcp.NewResource(
		"planforge://services/status",
		"Helper Service Status",
		mcp.WithResourceDescription("Which supervised helper services are currently running"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleServices returns the running helper services as JSON.
func (h *Handler) HandleServices(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	running := h.services.Running()
	data, err := json.MarshalIndent(map[string]any{
		"running": running,
		"count":   len(running),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling service status: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
