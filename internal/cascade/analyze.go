// Package cascade separates type-checker diagnostics into root causes
// and cascade effects. It resolves each diagnostic's message against the
// project symbol table, links diagnostics whose messages implicate a
// symbol to the diagnostics sitting at that symbol's declaration, and
// emits clusters plus a phased fix plan ordered by how many diagnostics
// fixing each root eliminates.
//
// The pipeline favors precision over recall throughout: an uncertain
// link is worse than no link, because a diagnostic without causes simply
// stands as its own root.
package cascade

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/symtab"
)

// DefaultLineTolerance is how far, in lines, a diagnostic may sit from a
// symbol's declaring line and still count as located at the declaration.
// Declarations span lines and checkers disagree about where exactly to
// point, so exact matching would miss real causes.
const DefaultLineTolerance = 2

// DefaultPhaseSizes puts the five biggest wins in phase one and the next
// ten in phase two; everything else lands in the remainder phase.
var DefaultPhaseSizes = []int{5, 10}

// Options tunes an analysis run. The zero value gets the defaults above.
type Options struct {
	// PhaseSizes caps the cluster count of each leading plan phase.
	// Sizes must be non-negative; remaining clusters form a final phase.
	// nil means DefaultPhaseSizes; an empty non-nil slice puts every
	// cluster in the single remainder phase.
	PhaseSizes []int

	// LineTolerance widens the declaring-line match window. Zero means
	// DefaultLineTolerance.
	LineTolerance int

	// Workers caps resolution concurrency. Zero means GOMAXPROCS.
	Workers int
}

// Stats summarizes one run for reports and tool output.
type Stats struct {
	Diagnostics    int   `json:"diagnostics"`
	Symbols        int   `json:"symbols"`
	ReferenceEdges int   `json:"reference_edges"`
	CausalEdges    int   `json:"causal_edges"`
	Roots          int   `json:"roots"`
	Cascades       int   `json:"cascades"`
	Unresolved     int   `json:"unresolved"`
	CycleBreaks    int   `json:"cycle_breaks"`
	TookMS         int64 `json:"took_ms"`
}

// Result is everything one analysis run produced. Clusters appear in
// canonical root order; Plan holds the same clusters ranked and phased.
type Result struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Clusters []RootCluster `json:"clusters"`
	Plan     *FixPlan      `json:"plan"`

	// Unresolved lists diagnostics whose messages matched no pattern or
	// named no known symbol. They are still classified (as roots); the
	// list exists so resolution gaps stay visible instead of silently
	// shrinking cascades.
	Unresolved []diagnostic.Diagnostic `json:"unresolved"`

	// Causes maps each cascade diagnostic ID to the causal edge chosen
	// as its direct explanation.
	Causes map[string]CausalEdge `json:"causes,omitempty"`

	CycleBreaks []CycleBreak `json:"cycle_breaks,omitempty"`

	Stats Stats `json:"stats"`
}

// Analyze runs the full pipeline: resolve references, build the causal
// graph, classify, cluster, and rank. The input diagnostics and symbols
// are not modified. Output is deterministic for the same input up to
// RunID and GeneratedAt, regardless of input order or worker count.
func Analyze(ctx context.Context, diags []diagnostic.Diagnostic, symbols []symtab.Symbol, opts Options) (*Result, error) {
	start := time.Now()

	if opts.PhaseSizes == nil {
		opts.PhaseSizes = DefaultPhaseSizes
	}
	if opts.LineTolerance == 0 {
		opts.LineTolerance = DefaultLineTolerance
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	if err := validateInput(diags, opts); err != nil {
		return nil, err
	}

	// Canonical order first: every downstream stage iterates this slice,
	// which is what makes shuffled input converge to identical output.
	ordered := make([]diagnostic.Diagnostic, len(diags))
	copy(ordered, diags)
	diagnostic.Sort(ordered)

	index := symtab.BuildIndex(symbols)

	refsPerDiag, err := resolveAll(ctx, ordered, index, opts.Workers)
	if err != nil {
		return nil, err
	}

	refsByID := make(map[string][]ReferenceEdge, len(ordered))
	referenceEdges := 0
	var unresolved []diagnostic.Diagnostic
	for i, d := range ordered {
		if len(refsPerDiag[i]) == 0 {
			unresolved = append(unresolved, d)
			continue
		}
		refsByID[d.ID] = refsPerDiag[i]
		referenceEdges += len(refsPerDiag[i])
	}

	cg, err := buildGraph(ordered, refsByID, opts.LineTolerance)
	if err != nil {
		return nil, err
	}

	class, cycleBreaks := classify(cg)
	clusters := clusterRoots(cg, class)

	plan, err := Rank(clusters, opts.PhaseSizes)
	if err != nil {
		return nil, err
	}

	causes := make(map[string]CausalEdge)
	cascadeCount := 0
	for _, d := range ordered {
		if c := class[d.ID]; !c.isRoot() {
			causes[d.ID] = *c.cause
			cascadeCount++
		}
	}

	return &Result{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Clusters:    clusters,
		Plan:        plan,
		Unresolved:  unresolved,
		Causes:      causes,
		CycleBreaks: cycleBreaks,
		Stats: Stats{
			Diagnostics:    len(ordered),
			Symbols:        index.Len(),
			ReferenceEdges: referenceEdges,
			CausalEdges:    len(cg.edges),
			Roots:          len(clusters),
			Cascades:       cascadeCount,
			Unresolved:     len(unresolved),
			CycleBreaks:    len(cycleBreaks),
			TookMS:         time.Since(start).Milliseconds(),
		},
	}, nil
}

// validateInput rejects structurally broken input before any work runs.
func validateInput(diags []diagnostic.Diagnostic, opts Options) error {
	if opts.LineTolerance < 0 {
		return inputErrorf("line tolerance is negative: %d", opts.LineTolerance)
	}
	for i, size := range opts.PhaseSizes {
		if size < 0 {
			return inputErrorf("phase size at index %d is negative: %d", i, size)
		}
	}

	seen := make(map[string]struct{}, len(diags))
	for _, d := range diags {
		if d.ID == "" {
			return inputErrorf("diagnostic at %s has an empty ID", d.Location())
		}
		if _, dup := seen[d.ID]; dup {
			return inputErrorf("duplicate diagnostic ID %q", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}
