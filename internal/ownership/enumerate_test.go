package ownership

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ladder builds levels of two companies where each company is owned 50/50 by
// both companies of the level above, and one individual owns the top level.
// The number of simple paths from P to the root is 2^levels.
func ladder(levels int) *fixture {
	f := newFixture().company("R").person("P")
	name := func(level, i int) string { return fmt.Sprintf("L%02d-%d", level, i) }
	for level := 1; level <= levels; level++ {
		f.company(name(level, 0), name(level, 1))
	}
	f.own(name(1, 0), "R", 50).own(name(1, 1), "R", 50)
	for level := 1; level < levels; level++ {
		for i := 0; i < 2; i++ {
			f.own(name(level+1, 0), name(level, i), 50).own(name(level+1, 1), name(level, i), 50)
		}
	}
	f.own("P", name(levels, 0), 100).own("P", name(levels, 1), 100)
	return f
}

func TestEnumerateLadderIsLinear(t *testing.T) {
	f := ladder(60)

	start := time.Now()
	a := f.analyze("R")
	res := a.Resolve()
	v := a.Validate()
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 2*time.Second, "2^60 paths must not be walked one by one")
	require.Equal(t, []string{"P"}, uboIDs(res.UBOs))
	assert.InDelta(t, 100, *res.UBOs[0].EffectivePercentage, 1e-9)
	assert.True(t, v.OwnershipSumValid)
	assert.Empty(t, v.Cycles)
	assert.Empty(t, v.DeadEnds)
}

func TestPathsMaterialisesNodesUpToLimit(t *testing.T) {
	f := ladder(3)
	g := f.graph("R")

	all := Paths(g, 0)
	require.Len(t, all, 8)
	for _, p := range all {
		assert.Equal(t, "P", p.IndividualID)
		assert.InDelta(t, 12.5, p.Percentage, 1e-9)
		require.Len(t, p.Nodes, 5)
		assert.Equal(t, "P", p.Nodes[0])
		assert.Equal(t, "R", p.Nodes[len(p.Nodes)-1])
	}

	assert.Len(t, Paths(g, 3), 3)
}

func TestEnumerateSharedHoldingAboveCycle(t *testing.T) {
	// H1 and H2 are reached from two branches and both lead into the X/Y
	// cross-holding.
	a := newFixture().
		company("R", "H1", "H2", "X", "Y").person("P").
		own("H1", "R", 50).own("H2", "R", 50).
		own("X", "H1", 100).own("X", "H2", 100).
		own("P", "X", 50).own("Y", "X", 50).
		own("X", "Y", 100).
		analyze("R")

	assert.InDelta(t, 50, a.EffectiveOwnership()["P"], 1e-9)
	assert.Equal(t, [][]string{{"X", "Y"}}, a.Enumeration.Cycles)
	assert.Len(t, Paths(a.Graph, 0), 2)
}

func TestCyclicCompaniesIgnoresSelfOwnership(t *testing.T) {
	g := newFixture().
		company("R", "A", "B", "S").person("P").
		own("A", "R", 50).own("S", "R", 50).
		own("B", "A", 100).own("A", "B", 50).own("P", "B", 50).
		own("S", "S", 10).own("P", "S", 90).
		graph("R")

	assert.Equal(t, map[string]bool{"A": true, "B": true}, cyclicCompanies(g))
}
