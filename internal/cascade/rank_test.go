package cascade

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the Rank Engine:
// - Clusters order by descending payoff with (file, line) tie-break
// - Phase sizes slice the ranking with a remainder phase
// - Cumulative counts accumulate across phases
// - Empty phase sizes put everything in one phase
// - Zero phase sizes are skipped
// - Oversized leading phases swallow everything without empty trailers
// - Negative phase sizes are a typed input error
// - No clusters yields an empty plan without error

func testCluster(file string, line, transitive int) RootCluster {
	return RootCluster{
		Root:            mkDiag(file, line, 1, "TS2322", "Type 'A' is not assignable to type 'B'."),
		TransitiveCount: transitive,
		DirectCount:     transitive,
	}
}

func TestRank_OrderingAndTieBreak(t *testing.T) {
	t.Parallel()

	// Test: Clusters order by descending payoff with (file, line) tie-break
	clusters := []RootCluster{
		testCluster("src/small.ts", 1, 0),
		testCluster("src/b.ts", 7, 4),
		testCluster("src/big.ts", 9, 12),
		testCluster("src/a.ts", 7, 4),
	}

	plan, err := Rank(clusters, nil)
	require.NoError(t, err)
	require.Len(t, plan.Phases, 1)

	got := plan.Phases[0].Clusters
	assert.Equal(t, "src/big.ts", got[0].Root.File)
	assert.Equal(t, "src/a.ts", got[1].Root.File, "equal payoff ranks by file then line")
	assert.Equal(t, "src/b.ts", got[2].Root.File)
	assert.Equal(t, "src/small.ts", got[3].Root.File)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].TransitiveCount, got[i].TransitiveCount)
	}
}

func TestRank_PhasePartitioning(t *testing.T) {
	t.Parallel()

	// Test: Phase sizes slice the ranking with a remainder phase
	var clusters []RootCluster
	for i := 0; i < 7; i++ {
		clusters = append(clusters, testCluster("src/f.ts", i+1, 7-i))
	}

	plan, err := Rank(clusters, []int{2, 3})
	require.NoError(t, err)
	require.Len(t, plan.Phases, 3)

	assert.Len(t, plan.Phases[0].Clusters, 2)
	assert.Len(t, plan.Phases[1].Clusters, 3)
	assert.Len(t, plan.Phases[2].Clusters, 2, "the rest lands in a final phase")

	assert.Equal(t, 1, plan.Phases[0].Number)
	assert.Equal(t, 2, plan.Phases[1].Number)
	assert.Equal(t, 3, plan.Phases[2].Number)
	assert.Equal(t, 7, plan.TotalRoots)
}

func TestRank_CumulativeCounts(t *testing.T) {
	t.Parallel()

	// Test: Cumulative counts accumulate across phases
	clusters := []RootCluster{
		testCluster("src/a.ts", 1, 5), // eliminates 6
		testCluster("src/b.ts", 1, 3), // eliminates 4
		testCluster("src/c.ts", 1, 0), // eliminates 1
	}

	plan, err := Rank(clusters, []int{1, 1})
	require.NoError(t, err)
	require.Len(t, plan.Phases, 3)

	assert.Equal(t, 6, plan.Phases[0].Eliminated)
	assert.Equal(t, 6, plan.Phases[0].CumulativeEliminated)
	assert.Equal(t, 4, plan.Phases[1].Eliminated)
	assert.Equal(t, 10, plan.Phases[1].CumulativeEliminated)
	assert.Equal(t, 1, plan.Phases[2].Eliminated)
	assert.Equal(t, 11, plan.Phases[2].CumulativeEliminated)
	assert.Equal(t, 11, plan.TotalEliminated)
}

func TestRank_EmptyPhaseSizes(t *testing.T) {
	t.Parallel()

	// Test: Empty phase sizes put everything in one phase
	clusters := []RootCluster{
		testCluster("src/a.ts", 1, 2),
		testCluster("src/b.ts", 1, 1),
	}

	plan, err := Rank(clusters, []int{})
	require.NoError(t, err)
	require.Len(t, plan.Phases, 1)
	assert.Len(t, plan.Phases[0].Clusters, 2)
}

func TestRank_ZeroSizesSkipped(t *testing.T) {
	t.Parallel()

	// Test: Zero phase sizes are skipped
	clusters := []RootCluster{
		testCluster("src/a.ts", 1, 2),
		testCluster("src/b.ts", 1, 1),
	}

	plan, err := Rank(clusters, []int{0, 1})
	require.NoError(t, err)
	require.Len(t, plan.Phases, 2)
	assert.Len(t, plan.Phases[0].Clusters, 1)
	assert.Len(t, plan.Phases[1].Clusters, 1)
}

func TestRank_OversizedPhase(t *testing.T) {
	t.Parallel()

	// Test: Oversized leading phases swallow everything without empty trailers
	clusters := []RootCluster{
		testCluster("src/a.ts", 1, 2),
	}

	plan, err := Rank(clusters, []int{5, 10})
	require.NoError(t, err)
	require.Len(t, plan.Phases, 1)
	assert.Len(t, plan.Phases[0].Clusters, 1)
}

func TestRank_NegativeSizeIsInputError(t *testing.T) {
	t.Parallel()

	// Test: Negative phase sizes are a typed input error
	_, err := Rank([]RootCluster{testCluster("src/a.ts", 1, 0)}, []int{5, -1})
	require.Error(t, err)

	var inputErr *InputError
	assert.True(t, errors.As(err, &inputErr))
	assert.Contains(t, inputErr.Reason, "negative")
}

func TestRank_EmptyClusters(t *testing.T) {
	t.Parallel()

	// Test: No clusters yields an empty plan without error
	plan, err := Rank(nil, []int{5, 10})
	require.NoError(t, err)
	assert.Empty(t, plan.Phases)
	assert.Zero(t, plan.TotalRoots)
	assert.Zero(t, plan.TotalEliminated)
}
