// Package resources implements MCP resource handlers for the prompt
// management server.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (promptops://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/registry"
)

// Handler manages resource endpoints over the prompt registry.
type Handler struct {
	reg *registry.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(reg *registry.Store) *Handler {
	return &Handler{reg: reg}
}

// StatusResource returns the MCP resource definition for registry status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"promptops://registry/status",
		"Prompt Registry Status",
		mcp.WithResourceDescription("Builtin catalog, saved custom prompts, and usage counters"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the current registry status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	custom, err := h.reg.ListCustom(nil)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	usage, err := h.reg.UsageStats(10)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if custom == nil {
		custom = []registry.CustomInfo{}
	}
	if usage == nil {
		usage = []registry.UsageEntry{}
	}

	status := map[string]any{
		"builtin_count":  len(registry.BuiltinNames()),
		"builtin_names":  registry.BuiltinNames(),
		"custom_count":   len(custom),
		"custom_prompts": custom,
		"most_used":      usage,
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
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
