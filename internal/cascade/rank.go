package cascade

import (
	"sort"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
)

// Phase is one tranche of the fix plan.
type Phase struct {
	Number               int           `json:"number"`
	Clusters             []RootCluster `json:"clusters"`
	Eliminated           int           `json:"eliminated"`
	CumulativeEliminated int           `json:"cumulative_eliminated"`
}

// FixPlan is the phased remediation plan, highest payoff first.
type FixPlan struct {
	Phases          []Phase `json:"phases"`
	TotalRoots      int     `json:"total_roots"`
	TotalEliminated int     `json:"total_eliminated"`
}

// Rank orders clusters by how many diagnostics fixing each root would
// eliminate and slices that order into phases. phaseSizes caps the
// cluster count of each leading phase; whatever remains forms a final
// phase. Equal payoffs tie-break on the root's file and line so the
// plan is stable across runs.
func Rank(clusters []RootCluster, phaseSizes []int) (*FixPlan, error) {
	for i, size := range phaseSizes {
		if size < 0 {
			return nil, inputErrorf("phase size at index %d is negative: %d", i, size)
		}
	}

	ranked := make([]RootCluster, len(clusters))
	copy(ranked, clusters)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Eliminated() != b.Eliminated() {
			return a.Eliminated() > b.Eliminated()
		}
		return diagnostic.Less(a.Root, b.Root)
	})

	plan := &FixPlan{TotalRoots: len(ranked)}
	idx := 0
	for _, size := range phaseSizes {
		if idx >= len(ranked) {
			break
		}
		if size == 0 {
			continue // a zero-size phase is simply absent from the plan
		}
		end := min(idx+size, len(ranked))
		plan.appendPhase(ranked[idx:end])
		idx = end
	}
	if idx < len(ranked) {
		plan.appendPhase(ranked[idx:])
	}
	return plan, nil
}

func (p *FixPlan) appendPhase(clusters []RootCluster) {
	eliminated := 0
	for _, c := range clusters {
		eliminated += c.Eliminated()
	}
	p.TotalEliminated += eliminated

	p.Phases = append(p.Phases, Phase{
		Number:               len(p.Phases) + 1,
		Clusters:             append([]RootCluster(nil), clusters...),
		Eliminated:           eliminated,
		CumulativeEliminated: p.TotalEliminated,
	})
}
