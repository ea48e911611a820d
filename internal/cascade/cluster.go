package cascade

import (
	"sort"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
)

// RootCluster groups one root diagnostic with every cascade that traces
// back to it through the chosen-cause chains. Every diagnostic belongs
// to exactly one cluster; a root with nothing downstream is a cluster
// of one.
type RootCluster struct {
	Root            diagnostic.Diagnostic `json:"root"`
	CascadeIDs      []string              `json:"cascade_ids"`
	DirectCount     int                   `json:"direct_count"`
	TransitiveCount int                   `json:"transitive_count"`
}

// Eliminated is how many diagnostics fixing this root removes: the root
// itself plus everything cascading from it.
func (c RootCluster) Eliminated() int {
	return 1 + c.TransitiveCount
}

// clusterRoots builds one cluster per root, in canonical root order.
// Cascade sets come from walking the chosen-cause chains downward with a
// visited set; chains always terminate because classification already
// cut every cycle.
func clusterRoots(cg *causalGraph, class map[string]classification) []RootCluster {
	children := make(map[string][]string)
	for _, d := range cg.ordered {
		if c := class[d.ID]; !c.isRoot() {
			children[c.cause.From] = append(children[c.cause.From], d.ID)
		}
	}

	var clusters []RootCluster
	for _, d := range cg.ordered {
		if !class[d.ID].isRoot() {
			continue
		}

		cascades := collectCascades(children, d.ID)
		sort.SliceStable(cascades, func(i, j int) bool {
			return diagnostic.Less(cg.diag(cascades[i]), cg.diag(cascades[j]))
		})

		clusters = append(clusters, RootCluster{
			Root:            cg.diag(d.ID),
			CascadeIDs:      cascades,
			DirectCount:     len(children[d.ID]),
			TransitiveCount: len(cascades),
		})
	}
	return clusters
}

// collectCascades gathers every descendant of rootID.
func collectCascades(children map[string][]string, rootID string) []string {
	cascades := []string{}
	visited := map[string]struct{}{rootID: {}}
	stack := []string{rootID}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range children[cur] {
			if _, seen := visited[child]; seen {
				continue
			}
			visited[child] = struct{}{}
			cascades = append(cascades, child)
			stack = append(stack, child)
		}
	}
	return cascades
}
