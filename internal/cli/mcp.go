package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-triage/internal/mcp"
)

var mcpLog string

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis over the Model Context Protocol",
	Long: `Start the Model Context Protocol (MCP) server so LLM-powered coding
assistants can work through the fix plan interactively.

The server:
- Analyzes the log once at startup
- Exposes triage_plan, triage_cluster, and triage_search tools
- Re-runs the analysis when the log or the sources change
- Communicates via stdio (standard MCP transport)

Example:
  triage mcp --log tsc.log`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpLog, "log", "tsc.log", "Type-checker log to analyze and watch")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// stdio carries the protocol, so startup chatter goes to stderr.
	fmt.Fprintf(os.Stderr, "Triage MCP Server\n")
	fmt.Fprintf(os.Stderr, "Log: %s\n", mcpLog)
	fmt.Fprintf(os.Stderr, "Source root: %s\n\n", cfg.Source.Root)

	server, err := mcp.NewServer(ctx, cfg, mcpLog)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
