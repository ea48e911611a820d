package cascade

import (
	"sort"

	"github.com/mvp-joe/project-triage/internal/diagnostic"
)

// classification is the verdict for one diagnostic: a root stands on its
// own, a cascade carries the incoming edge chosen as its direct cause.
type classification struct {
	cause *CausalEdge // nil for roots
}

func (c classification) isRoot() bool { return c.cause == nil }

// CycleBreak records a causal cycle resolved deterministically: the
// member with the lowest file and line is promoted to root and its
// chosen incoming edge is dropped. The edge stays recorded here so the
// report can show what was cut.
type CycleBreak struct {
	RootID      string     `json:"root_id"`
	DroppedEdge CausalEdge `json:"dropped_edge"`
	MemberIDs   []string   `json:"member_ids"`
}

// classify walks every diagnostic and decides root or cascade. A node
// with no incoming edges is a root. A node with incoming edges becomes a
// cascade of exactly one of them, chosen by a fixed tie-break: strong
// edges beat weak ones, sources that are themselves structural roots
// beat sources that are not, and the lowest (file, line) source wins
// what remains. Cycles in the resulting parent chains are broken by
// promoting the lowest-located member to root.
func classify(cg *causalGraph) (map[string]classification, []CycleBreak) {
	parent := make(map[string]*CausalEdge, len(cg.ordered))
	for _, d := range cg.ordered {
		parent[d.ID] = chooseCause(cg, d.ID)
	}

	breaks := breakCycles(cg, parent)

	result := make(map[string]classification, len(cg.ordered))
	for _, d := range cg.ordered {
		result[d.ID] = classification{cause: parent[d.ID]}
	}
	return result, breaks
}

// chooseCause picks the single incoming edge that best explains a node,
// or nil when the node has none.
func chooseCause(cg *causalGraph, id string) *CausalEdge {
	in := cg.incoming[id]
	switch len(in) {
	case 0:
		return nil
	case 1:
		return &in[0]
	}

	candidates := make([]CausalEdge, len(in))
	copy(candidates, in)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		aRoot, bRoot := cg.isStructuralRoot(a.From), cg.isStructuralRoot(b.From)
		if aRoot != bRoot {
			return aRoot
		}
		return diagnostic.Less(cg.diag(a.From), cg.diag(b.From))
	})
	return &candidates[0]
}

// breakCycles finds cycles in the chosen-parent chains and cuts each one
// by clearing the parent of its lowest-located member. Nodes are visited
// in canonical order, so the same input always cuts the same edges.
func breakCycles(cg *causalGraph, parent map[string]*CausalEdge) []CycleBreak {
	const (
		white = iota // unvisited
		gray         // on the current chain
		black        // settled
	)
	color := make(map[string]int, len(cg.ordered))

	var breaks []CycleBreak
	for _, d := range cg.ordered {
		if color[d.ID] != white {
			continue
		}

		var chain []string
		cur := d.ID
		for {
			if color[cur] == black {
				break
			}
			if color[cur] == gray {
				breaks = append(breaks, cutCycle(cg, parent, chain, cur))
				break
			}
			color[cur] = gray
			chain = append(chain, cur)

			p := parent[cur]
			if p == nil {
				break
			}
			cur = p.From
		}
		for _, id := range chain {
			color[id] = black
		}
	}
	return breaks
}

// cutCycle handles one detected cycle. chain is the walk so far and
// entry the node that closed the loop; the cycle is chain[entry:].
func cutCycle(cg *causalGraph, parent map[string]*CausalEdge, chain []string, entry string) CycleBreak {
	start := 0
	for i, id := range chain {
		if id == entry {
			start = i
			break
		}
	}
	members := chain[start:]

	keep := members[0]
	for _, id := range members[1:] {
		if diagnostic.Less(cg.diag(id), cg.diag(keep)) {
			keep = id
		}
	}

	dropped := *parent[keep]
	parent[keep] = nil

	memberIDs := make([]string, len(members))
	copy(memberIDs, members)
	return CycleBreak{RootID: keep, DroppedEdge: dropped, MemberIDs: memberIDs}
}
