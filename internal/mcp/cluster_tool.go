package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/project-triage/internal/cascade"
	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/report"
)

// ClusterResponse is the triage_cluster tool payload: one root with
// every diagnostic that cascades from it.
type ClusterResponse struct {
	Root            diagnostic.Diagnostic `json:"root"`
	DirectCount     int                   `json:"direct_count"`
	TransitiveCount int                   `json:"transitive_count"`
	Eliminated      int                   `json:"eliminated"`
	Cascades        []ClusterCascade      `json:"cascades"`
	Context         string                `json:"context,omitempty"`
}

// ClusterCascade is one downstream diagnostic with the causal link that
// attributed it to the root's chain.
type ClusterCascade struct {
	Diagnostic diagnostic.Diagnostic `json:"diagnostic"`
	ViaSymbol  string                `json:"via_symbol,omitempty"`
	Confidence string                `json:"confidence,omitempty"`
}

// AddTriageClusterTool registers the triage_cluster tool with an MCP
// server. reader supplies source snippets around the root's location.
func AddTriageClusterTool(s *server.MCPServer, provider SnapshotProvider, reader *report.ContextReader) {
	tool := mcp.NewTool(
		"triage_cluster",
		mcp.WithDescription("Inspect one root cause in detail: the diagnostics that cascade from it, the symbols linking them, and source context around the root's location. Root IDs come from triage_plan."),
		mcp.WithString("root_id",
			mcp.Required(),
			mcp.Description("Root diagnostic ID from triage_plan (e.g. 'src/user.ts:3:14:TS2304')")),
		mcp.WithBoolean("include_context",
			mcp.Description("Include a source snippet around the root's location (default: true)")),
		mcp.WithNumber("context_lines",
			mcp.Description("Number of context lines around the root (default: 3, max: 20)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createTriageClusterHandler(provider, reader))
}

// createTriageClusterHandler creates the handler function for triage_cluster.
func createTriageClusterHandler(provider SnapshotProvider, reader *report.ContextReader) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		rootID, err := parseStringArg(argsMap, "root_id", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		includeContext := parseBoolArg(argsMap, "include_context", true)
		contextLines := parseClampedInt(argsMap, "context_lines", report.DefaultContextLines, 0, report.MaxContextLines)

		snap := provider.Snapshot()
		if snap == nil {
			return nil, fmt.Errorf("no analysis loaded")
		}

		cluster, found := findCluster(snap.Result.Clusters, rootID)
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("no cluster with root ID %q; root IDs come from triage_plan", rootID)), nil
		}

		response := ClusterResponse{
			Root:            cluster.Root,
			DirectCount:     cluster.DirectCount,
			TransitiveCount: cluster.TransitiveCount,
			Eliminated:      cluster.Eliminated(),
			Cascades:        make([]ClusterCascade, 0, len(cluster.CascadeIDs)),
		}

		for _, id := range cluster.CascadeIDs {
			d, ok := snap.Diagnostic(id)
			if !ok {
				continue
			}
			out := ClusterCascade{Diagnostic: d}
			if edge, ok := snap.Result.Causes[id]; ok {
				out.ViaSymbol = edge.Symbol.Name
				out.Confidence = edge.Confidence.String()
			}
			response.Cascades = append(response.Cascades, out)
		}

		if includeContext {
			snippet, err := reader.Snippet(cluster.Root.File, cluster.Root.Line, contextLines)
			if err != nil {
				// The file may be gone or the log stale; the cluster is
				// still useful without the snippet.
				log.Printf("Warning: no context for %s: %v", cluster.Root.Location(), err)
			} else {
				response.Context = snippet
			}
		}

		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

func findCluster(clusters []cascade.RootCluster, rootID string) (cascade.RootCluster, bool) {
	for _, c := range clusters {
		if c.Root.ID == rootID {
			return c, true
		}
	}
	return cascade.RootCluster{}, false
}
