package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/project-triage/internal/cascade"
	"github.com/mvp-joe/project-triage/internal/diagnostic"
)

// PlanResponse is the triage_plan tool payload: the phased fix plan
// plus run-level stats.
type PlanResponse struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Stats       cascade.Stats `json:"stats"`
	Phases      []PlanPhase   `json:"phases"`
	Truncated   bool          `json:"truncated"`
}

// PlanPhase is one tranche of the plan.
type PlanPhase struct {
	Number               int           `json:"number"`
	Eliminated           int           `json:"eliminated"`
	CumulativeEliminated int           `json:"cumulative_eliminated"`
	Clusters             []PlanCluster `json:"clusters"`
}

// PlanCluster summarizes one root; its Root.ID feeds triage_cluster.
type PlanCluster struct {
	Root            diagnostic.Diagnostic `json:"root"`
	DirectCount     int                   `json:"direct_count"`
	TransitiveCount int                   `json:"transitive_count"`
	Eliminated      int                   `json:"eliminated"`
}

// AddTriagePlanTool registers the triage_plan tool with an MCP server.
func AddTriagePlanTool(s *server.MCPServer, provider SnapshotProvider) {
	tool := mcp.NewTool(
		"triage_plan",
		mcp.WithDescription("Get the phased fix plan for the latest type-checker run: root-cause diagnostics ranked by how many diagnostics fixing each one eliminates. Start here, then drill into a root with triage_cluster using its root.id."),
		mcp.WithNumber("max_clusters",
			mcp.Description("Maximum number of clusters to return across all phases (default: 50, max: 500)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createTriagePlanHandler(provider))
}

// createTriagePlanHandler creates the handler function for triage_plan.
func createTriagePlanHandler(provider SnapshotProvider) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		// All arguments are optional, so a missing map is fine.
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok && request.Params.Arguments != nil {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		maxClusters := parseClampedInt(argsMap, "max_clusters", 50, 1, 500)

		snap := provider.Snapshot()
		if snap == nil {
			return nil, fmt.Errorf("no analysis loaded")
		}
		result := snap.Result

		response := PlanResponse{
			RunID:       result.RunID,
			GeneratedAt: result.GeneratedAt,
			Stats:       result.Stats,
		}

		remaining := maxClusters
		for _, phase := range result.Plan.Phases {
			if remaining <= 0 {
				response.Truncated = true
				break
			}
			out := PlanPhase{
				Number:               phase.Number,
				Eliminated:           phase.Eliminated,
				CumulativeEliminated: phase.CumulativeEliminated,
			}
			for _, c := range phase.Clusters {
				if remaining <= 0 {
					response.Truncated = true
					break
				}
				out.Clusters = append(out.Clusters, PlanCluster{
					Root:            c.Root,
					DirectCount:     c.DirectCount,
					TransitiveCount: c.TransitiveCount,
					Eliminated:      c.Eliminated(),
				})
				remaining--
			}
			response.Phases = append(response.Phases, out)
		}

		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
