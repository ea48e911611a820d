package report

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mvp-joe/project-triage/internal/cascade"
	"github.com/mvp-joe/project-triage/internal/diagnostic"
)

// DefaultMaxCascades caps the cascade list printed under each root; the
// remainder is summarized in one line.
const DefaultMaxCascades = 10

// Options controls report rendering.
type Options struct {
	// ContextLines is the snippet padding around each root's line.
	ContextLines int
	// MaxCascades caps the per-cluster cascade listing. Zero means
	// DefaultMaxCascades.
	MaxCascades int
}

// Renderer turns an analysis result into a markdown triage report. A nil
// ContextReader skips source snippets.
type Renderer struct {
	opts   Options
	reader *ContextReader
}

// NewRenderer creates a renderer. reader may be nil.
func NewRenderer(opts Options, reader *ContextReader) *Renderer {
	if opts.MaxCascades <= 0 {
		opts.MaxCascades = DefaultMaxCascades
	}
	return &Renderer{opts: opts, reader: reader}
}

// Render produces the full markdown report. diags must be the same set
// the analysis ran on; it supplies locations and messages for cascade
// listings.
func (r *Renderer) Render(result *cascade.Result, diags []diagnostic.Diagnostic) string {
	byID := make(map[string]diagnostic.Diagnostic, len(diags))
	for _, d := range diags {
		byID[d.ID] = d
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Diagnostic Triage Report\n\n")
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", result.RunID, result.GeneratedAt.Format(time.RFC3339))

	r.renderSummary(&b, result)
	r.renderCategories(&b, diags)
	r.renderPlan(&b, result, byID)
	r.renderUnresolved(&b, result)
	r.renderCycleBreaks(&b, result, byID)

	return b.String()
}

func (r *Renderer) renderSummary(b *strings.Builder, result *cascade.Result) {
	s := result.Stats
	fmt.Fprintf(b, "## Summary\n\n")

	if s.Diagnostics == 0 {
		fmt.Fprintf(b, "No diagnostics. Nothing to fix.\n\n")
		return
	}

	fmt.Fprintf(b, "| Metric | Count |\n")
	fmt.Fprintf(b, "| --- | ---: |\n")
	fmt.Fprintf(b, "| Diagnostics | %d |\n", s.Diagnostics)
	fmt.Fprintf(b, "| Root causes | %d |\n", s.Roots)
	fmt.Fprintf(b, "| Cascades | %d |\n", s.Cascades)
	fmt.Fprintf(b, "| Unresolved messages | %d |\n", s.Unresolved)
	fmt.Fprintf(b, "| Symbols indexed | %d |\n", s.Symbols)
	fmt.Fprintf(b, "| Causal edges | %d |\n\n", s.CausalEdges)

	fmt.Fprintf(b, "Fixing all %d roots eliminates all %d diagnostics.\n\n",
		s.Roots, result.Plan.TotalEliminated)
}

func (r *Renderer) renderCategories(b *strings.Builder, diags []diagnostic.Diagnostic) {
	if len(diags) == 0 {
		return
	}

	counts := make(map[diagnostic.Category]int)
	for _, d := range diags {
		counts[d.Category]++
	}

	fmt.Fprintf(b, "## Categories\n\n")
	fmt.Fprintf(b, "| Category | Count |\n")
	fmt.Fprintf(b, "| --- | ---: |\n")
	for _, cat := range diagnostic.Categories() {
		if counts[cat] > 0 {
			fmt.Fprintf(b, "| %s | %d |\n", cat, counts[cat])
		}
	}
	fmt.Fprintf(b, "\n")
}

func (r *Renderer) renderPlan(b *strings.Builder, result *cascade.Result, byID map[string]diagnostic.Diagnostic) {
	if len(result.Plan.Phases) == 0 {
		return
	}

	fmt.Fprintf(b, "## Fix plan\n\n")
	rank := 0
	for _, phase := range result.Plan.Phases {
		fmt.Fprintf(b, "### Phase %d, eliminates %d (%d cumulative)\n\n",
			phase.Number, phase.Eliminated, phase.CumulativeEliminated)

		for _, cluster := range phase.Clusters {
			rank++
			r.renderCluster(b, rank, cluster, result, byID)
		}
	}
}

func (r *Renderer) renderCluster(b *strings.Builder, rank int, cluster cascade.RootCluster, result *cascade.Result, byID map[string]diagnostic.Diagnostic) {
	root := cluster.Root
	fmt.Fprintf(b, "#### %d. %s `%s` (%s)\n\n", rank, root.Location(), root.Code, root.Category)
	fmt.Fprintf(b, "%s\n\n", root.Message)

	switch cluster.TransitiveCount {
	case 0:
		fmt.Fprintf(b, "Standalone: fixing it eliminates only itself.\n\n")
	default:
		fmt.Fprintf(b, "Fixing this eliminates %d diagnostics (%d direct, %d total cascades).\n\n",
			cluster.Eliminated(), cluster.DirectCount, cluster.TransitiveCount)
	}

	if r.reader != nil {
		snippet, err := r.reader.Snippet(root.File, root.Line, r.opts.ContextLines)
		if err != nil {
			log.Printf("Warning: no context for %s: %v", root.Location(), err)
		} else {
			fmt.Fprintf(b, "```\n%s\n```\n\n", snippet)
		}
	}

	if len(cluster.CascadeIDs) == 0 {
		return
	}

	fmt.Fprintf(b, "Cascades:\n\n")
	shown := min(len(cluster.CascadeIDs), r.opts.MaxCascades)
	for _, id := range cluster.CascadeIDs[:shown] {
		d, ok := byID[id]
		if !ok {
			continue
		}
		if cause, hasCause := result.Causes[id]; hasCause {
			fmt.Fprintf(b, "- %s `%s` via `%s` (%s)\n", d.Location(), d.Code, cause.Symbol.Name, cause.Confidence)
		} else {
			fmt.Fprintf(b, "- %s `%s`\n", d.Location(), d.Code)
		}
	}
	if rest := len(cluster.CascadeIDs) - shown; rest > 0 {
		fmt.Fprintf(b, "- and %d more\n", rest)
	}
	fmt.Fprintf(b, "\n")
}

func (r *Renderer) renderUnresolved(b *strings.Builder, result *cascade.Result) {
	if len(result.Unresolved) == 0 {
		return
	}

	fmt.Fprintf(b, "## Unresolved messages\n\n")
	fmt.Fprintf(b, "These diagnostics matched no reference pattern or named no known symbol. ")
	fmt.Fprintf(b, "They are treated as their own roots.\n\n")
	for _, d := range result.Unresolved {
		fmt.Fprintf(b, "- %s `%s` %s\n", d.Location(), d.Code, d.Message)
	}
	fmt.Fprintf(b, "\n")
}

func (r *Renderer) renderCycleBreaks(b *strings.Builder, result *cascade.Result, byID map[string]diagnostic.Diagnostic) {
	if len(result.CycleBreaks) == 0 {
		return
	}

	fmt.Fprintf(b, "## Cycles\n\n")
	fmt.Fprintf(b, "Mutually referencing diagnostics were found. In each group the ")
	fmt.Fprintf(b, "lowest location was kept as root and the reverse link ignored.\n\n")
	for _, cb := range result.CycleBreaks {
		root, ok := byID[cb.RootID]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "- %d diagnostics around %s; dropped reverse link via `%s`\n",
			len(cb.MemberIDs), root.Location(), cb.DroppedEdge.Symbol.Name)
	}
	fmt.Fprintf(b, "\n")
}
