package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/search"
)

var (
	searchLog      string
	searchLimit    int
	searchCategory string
	searchFile     string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the diagnostics of a type-checker log",
	Long: `Search runs a full-text query over a parsed tsc log. The query uses
bleve query-string syntax: bare terms match the message, fields can be
scoped (message:, code:, file:), and phrases, booleans, and wildcards
all work.

Examples:
  # Find everything about assignability
  triage search "not assignable" --log tsc.log

  # One error code, one corner of the tree
  triage search "code:TS2304" --file "src/api/*"

  # Only type mismatches mentioning User
  triage search User --category type-mismatch
`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchLog, "log", "tsc.log", "Type-checker log to search ('-' for stdin)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 15, "Maximum number of hits")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Restrict hits to one diagnostic category")
	searchCmd.Flags().StringVar(&searchFile, "file", "", "Restrict hits by file path terms (wildcards allowed)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	if searchCategory != "" && !diagnostic.ValidCategory(searchCategory) {
		return fmt.Errorf("unknown category %q", searchCategory)
	}

	var (
		diags []diagnostic.Diagnostic
		err   error
	)
	if searchLog == "-" {
		diags, err = diagnostic.ParseLog(os.Stdin)
	} else {
		diags, err = diagnostic.ParseFile(searchLog)
	}
	if err != nil {
		return err
	}

	searcher, err := search.NewSearcher(ctx, diags)
	if err != nil {
		return err
	}
	defer searcher.Close()

	results, err := searcher.Search(ctx, query, &search.Options{
		Limit:    searchLimit,
		Category: searchCategory,
		File:     searchFile,
	})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Printf("No diagnostics matched %q.\n", query)
		return nil
	}

	for i, r := range results {
		d := r.Diagnostic
		fmt.Printf("%d. %s %s (%s)\n", i+1, d.Location(), d.Code, d.Category)
		fmt.Printf("   %s\n", d.Message)
	}
	fmt.Printf("\n%d of %d diagnostics matched.\n", len(results), len(diags))
	return nil
}
