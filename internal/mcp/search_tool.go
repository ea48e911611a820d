package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/search"
)

// SearchResponse is the triage_search tool payload.
type SearchResponse struct {
	Hits  []*search.Result `json:"hits"`
	Total int              `json:"total"`
}

// AddTriageSearchTool registers the triage_search tool with an MCP server.
func AddTriageSearchTool(s *server.MCPServer, provider SnapshotProvider) {
	tool := mcp.NewTool(
		"triage_search",
		mcp.WithDescription("Full-text search over the diagnostics of the latest type-checker run. Supports field scoping (message:, code:, file:), boolean operators, phrases, and wildcards. Returns matching diagnostics with highlighted message fragments."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (e.g. 'not assignable', 'code:TS2304', '\"implicitly has an any type\"')")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of hits to return (1-100, default: 15)")),
		mcp.WithString("category",
			mcp.Description("Restrict hits to one diagnostic category (e.g. 'type-mismatch', 'import-module')")),
		mcp.WithString("file",
			mcp.Description("Restrict hits by file path terms; wildcards allowed (e.g. 'handler*')")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createTriageSearchHandler(provider))
}

// createTriageSearchHandler creates the handler function for triage_search.
func createTriageSearchHandler(provider SnapshotProvider) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		query, err := parseStringArg(argsMap, "query", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		category, err := parseStringArg(argsMap, "category", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if category != "" && !diagnostic.ValidCategory(category) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category %q (must be one of: %s)", category, categoryList())), nil
		}

		file, err := parseStringArg(argsMap, "file", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		options := &search.Options{
			Limit:    parseClampedInt(argsMap, "limit", 15, 1, 100),
			Category: category,
			File:     file,
		}

		snap := provider.Snapshot()
		if snap == nil {
			return nil, fmt.Errorf("no analysis loaded")
		}

		results, err := snap.Searcher.Search(ctx, query, options)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		response := SearchResponse{
			Hits:  results,
			Total: len(results),
		}

		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

func categoryList() string {
	cats := diagnostic.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
