package cascade

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
	"github.com/mvp-joe/project-triage/internal/symtab"
)

// CausalEdge asserts that fixing the From diagnostic is expected to
// eliminate the To diagnostic. It exists because To's message implicates
// Symbol and From sits at (or within tolerance of) Symbol's declaration.
type CausalEdge struct {
	From       string        `json:"from"`
	To         string        `json:"to"`
	Symbol     symtab.Symbol `json:"symbol"`
	Confidence Confidence    `json:"confidence"`
}

// causalGraph is the directed diagnostic graph plus the reverse indexes
// the classifier and clusterer traverse. Vertices are diagnostics keyed
// by ID.
type causalGraph struct {
	g        graph.Graph[string, *diagnostic.Diagnostic]
	ordered  []diagnostic.Diagnostic // canonical order, owns the vertices
	byID     map[string]*diagnostic.Diagnostic
	edges    []CausalEdge
	incoming map[string][]CausalEdge // keyed by To, canonical order
}

// buildGraph links diagnostics into a causality graph. ordered must be in
// canonical order and refsByID keyed by diagnostic ID; tolerance is how
// many lines a diagnostic may sit from a declaring line and still count
// as located at it. Self-edges are dropped, and parallel edges between
// the same pair collapse to the strongest one.
func buildGraph(ordered []diagnostic.Diagnostic, refsByID map[string][]ReferenceEdge, tolerance int) (*causalGraph, error) {
	cg := &causalGraph{
		g:        graph.New(func(d *diagnostic.Diagnostic) string { return d.ID }, graph.Directed()),
		ordered:  ordered,
		byID:     make(map[string]*diagnostic.Diagnostic, len(ordered)),
		incoming: make(map[string][]CausalEdge),
	}

	// byFile keeps per-file diagnostics sorted by line for the tolerance
	// window scan; ordered is already canonically sorted.
	type lineEntry struct {
		line int
		id   string
	}
	byFile := make(map[string][]lineEntry)

	for i := range ordered {
		d := &ordered[i]
		if err := cg.g.AddVertex(d); err != nil {
			return nil, fmt.Errorf("failed to add diagnostic %s: %w", d.ID, err)
		}
		cg.byID[d.ID] = d
		byFile[d.File] = append(byFile[d.File], lineEntry{line: d.Line, id: d.ID})
	}

	best := make(map[[2]string]CausalEdge)
	var keys [][2]string

	for _, to := range ordered {
		for _, ref := range refsByID[to.ID] {
			entries := byFile[ref.Symbol.File]
			lo := sort.Search(len(entries), func(i int) bool {
				return entries[i].line >= ref.Symbol.Line-tolerance
			})
			for i := lo; i < len(entries) && entries[i].line <= ref.Symbol.Line+tolerance; i++ {
				from := entries[i].id
				if from == to.ID {
					continue // a diagnostic never causes itself
				}
				key := [2]string{from, to.ID}
				edge := CausalEdge{From: from, To: to.ID, Symbol: ref.Symbol, Confidence: ref.Confidence}
				if prev, ok := best[key]; !ok {
					best[key] = edge
					keys = append(keys, key)
				} else if edge.Confidence > prev.Confidence {
					best[key] = edge
				}
			}
		}
	}

	cg.edges = make([]CausalEdge, 0, len(keys))
	for _, key := range keys {
		cg.edges = append(cg.edges, best[key])
	}
	sort.SliceStable(cg.edges, func(i, j int) bool {
		a, b := cg.edges[i], cg.edges[j]
		if a.From != b.From {
			return diagnostic.Less(*cg.byID[a.From], *cg.byID[b.From])
		}
		return diagnostic.Less(*cg.byID[a.To], *cg.byID[b.To])
	})

	for _, e := range cg.edges {
		// Both endpoints are known vertices; ErrEdgeAlreadyExists cannot
		// happen after pair dedup above.
		_ = cg.g.AddEdge(e.From, e.To, graph.EdgeData(e))
		cg.incoming[e.To] = append(cg.incoming[e.To], e)
	}

	return cg, nil
}

// diag returns the diagnostic for id. The ID is always one the graph
// itself produced, so a miss is a programming error.
func (cg *causalGraph) diag(id string) diagnostic.Diagnostic {
	return *cg.byID[id]
}

// isStructuralRoot reports whether a node has no incoming edges at all.
func (cg *causalGraph) isStructuralRoot(id string) bool {
	return len(cg.incoming[id]) == 0
}
