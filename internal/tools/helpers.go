// Package tools provides MCP tool handlers for prompt operations.
//
// Each tool handler follows the same pattern:
// - A struct with dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// List parameters travel as JSON-array strings (e.g. prompt_refs:
// "[\"a\", \"b\"]") because the schema layer only carries scalars.
// Structured results are returned as indented JSON text.
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatArg extracts a float argument from a tool request.
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// stringListArg parses a JSON-array-string argument into a string
// slice. An absent or empty argument yields nil without error.
func stringListArg(req mcp.CallToolRequest, key string) ([]string, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("'%s' must be a JSON array of strings, e.g. [\"a\", \"b\"]: %v", key, err)
	}
	return list, nil
}

// mapArg parses a JSON-object-string argument into a map. An absent
// argument yields an empty map.
func mapArg(req mcp.CallToolRequest, key string) (map[string]any, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("'%s' must be a JSON object: %v", key, err)
	}
	return m, nil
}

// jsonResult marshals v as indented JSON into a text tool result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// extractDescription pulls the first content line out of a prompt,
// skipping markdown headers and HTML comments, truncated for listings.
func extractDescription(content string, maxLength int) string {
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "<!--") {
			continue
		}
		if len(line) > maxLength {
			return line[:maxLength] + "..."
		}
		return line
	}
	return "No description available"
}
