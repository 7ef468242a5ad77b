package tools

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/shippopotamus/promptops/internal/embeddings"
	"github.com/shippopotamus/promptops/internal/registry"
)

// SearchTool handles the search_prompts MCP tool.
type SearchTool struct {
	index *embeddings.Index
	reg   *registry.Store
}

// NewSearchTool creates a SearchTool with its dependencies.
func NewSearchTool(index *embeddings.Index, reg *registry.Store) *SearchTool {
	return &SearchTool{index: index, reg: reg}
}

// Definition returns the MCP tool definition for search_prompts.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("search_prompts",
		mcp.WithDescription(
			"Search for prompts by semantic similarity to a natural "+
				"language query. The first search indexes every builtin and "+
				"custom prompt automatically.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language description of what you want to do"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of results to return (default: 5)"),
		),
		mcp.WithNumber("min_similarity",
			mcp.Description("Minimum similarity threshold, 0-1 (default: 0.3)"),
		),
	)
}

// Handle processes the search_prompts tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	topK := intArg(req, "top_k", 5)
	minSim := floatArg(req, "min_similarity", 0.3)

	results, err := t.search(ctx, query, topK, minSim)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return jsonResult(map[string]any{
			"query":   query,
			"results": []searchResult{},
			"message": "No similar prompts found. Try a different query or use list_available()",
		}), nil
	}

	var names []string
	for i, r := range results {
		if i == 3 {
			break
		}
		names = append(names, r.Name)
	}

	return jsonResult(map[string]any{
		"query":   query,
		"results": results,
		"tip":     fmt.Sprintf("Load these with: load_prompts([\"%s\"])", strings.Join(names, "\", \"")),
	}), nil
}

// searchResult is one enriched similarity match.
type searchResult struct {
	Name        string  `json:"name"`
	Similarity  float64 `json:"similarity"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Tokens      int     `json:"tokens"`
}

// search embeds the query and enriches the raw matches with registry
// metadata. Matches whose prompt no longer resolves are dropped.
func (t *SearchTool) search(ctx context.Context, query string, topK int, minSim float64) ([]searchResult, error) {
	queryVec, _ := t.index.Embed(ctx, query)

	matches, diags, err := t.index.FindSimilar(ctx, queryVec, topK, minSim)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		log.Printf("WARNING: auto-index skipped %s/%s: %s", d.Kind, d.Ref, d.Err)
	}

	var results []searchResult
	for _, m := range matches {
		block, err := t.reg.Resolve(m.PromptType + ":" + m.PromptID)
		if err != nil {
			continue
		}
		results = append(results, searchResult{
			Name:        m.PromptID,
			Similarity:  math.Round(m.Similarity*1000) / 1000,
			Type:        m.PromptType,
			Description: extractDescription(block.Content, 150),
			Tokens:      block.Tokens,
		})
	}
	return results, nil
}
