package extract

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/graph"
)

func descriptor(id string, traversals ...[]string) *bubble.Descriptor {
	d := &bubble.Descriptor{ID: id}
	for _, ids := range traversals {
		d.Traversals = append(d.Traversals, bubble.NewTraversal(ids...))
	}
	return d
}

func nodeNames(g *graph.Graph) []string {
	var names []string
	for _, n := range g.Nodes() {
		names = append(names, n.ID)
	}
	sort.Strings(names)
	return names
}

func edgeNames(g *graph.Graph) []string {
	var names []string
	for _, e := range g.Edges() {
		a, b := g.Node(e.From).ID, g.Node(e.To).ID
		if a > b {
			a, b = b, a
		}
		names = append(names, a+"-"+b)
	}
	sort.Strings(names)
	return names
}

func TestComputeBudget(t *testing.T) {
	m := graph.NewMockFactory()
	m.AddSegment("a", 3)
	m.AddSegment("b", 10)
	m.AddSegment("c", 1)
	m.AddSegment("d", 1)
	m.AddSegment("e", 1)
	m.AddSegment("z", 7)

	tests := []struct {
		name string
		d    *bubble.Descriptor
		want Budget
	}{
		{name: "anchors only", d: descriptor("v", []string{"a", "z"}, []string{"a", "z"}), want: Budget{0, 0}},
		{name: "distance from ref step from alt", d: descriptor("v", []string{"a", "b", "z"}, []string{"a", "c", "d", "e", "z"}), want: Budget{10, 3}},
		{name: "third allele counts", d: descriptor("v", []string{"a", "z"}, []string{"a", "c", "z"}, []string{"a", "b", "c", "z"}), want: Budget{11, 2}},
		{name: "single traversal", d: descriptor("v", []string{"a", "b", "c", "z"}), want: Budget{11, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeBudget(m.Graph, tt.d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeBudget_Errors(t *testing.T) {
	m := graph.NewMockFactory()
	m.Chain(5, "a", "b", "c")

	_, err := ComputeBudget(m.Graph, descriptor("empty"))
	assert.ErrorIs(t, err, bubble.ErrMalformedBubble)

	_, err = ComputeBudget(m.Graph, descriptor("v", []string{"a", "b", "c"}, []string{"a", "ghost", "c"}))
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)

	// Anchors are not sized, so an unknown anchor passes sizing.
	_, err = ComputeBudget(m.Graph, descriptor("v", []string{"ghost", "b", "c"}))
	assert.NoError(t, err)
}

func TestBudget_Admits(t *testing.T) {
	b := Budget{MaxDistance: 5, MaxStep: 1}
	assert.True(t, b.Admits(5, 1))
	assert.True(t, b.Admits(5, 9), "distance alone")
	assert.True(t, b.Admits(500, 1), "step alone")
	assert.False(t, b.Admits(6, 2))
}

// Linear chain A-B-C-D (len 5), REF [A, D], ALT [A, B, D]. All three allele
// nodes are seeds at distance zero, so D reaches C on its first hop and B
// reaches C as well. C's own hops exceed both bounds.
func TestExtract_LinearChain(t *testing.T) {
	m := graph.NewMockFactory()
	m.Chain(5, "A", "B", "C", "D")

	d := descriptor("chain", []string{"A", "D"}, []string{"A", "B", "D"})
	sub, budget, err := ExtractWithBudget(m.Graph, d)
	require.NoError(t, err)

	assert.Equal(t, Budget{MaxDistance: 5, MaxStep: 1}, budget)
	assert.Equal(t, []string{"A", "B", "C", "D"}, nodeNames(sub))
	assert.Equal(t, []string{"A-B", "B-C", "C-D"}, edgeNames(sub))

	wantTags := map[string]graph.Provenance{
		"A": graph.Reference,
		"D": graph.Reference,
		"B": graph.Alternate,
		"C": graph.Reference,
	}
	for id, want := range wantTags {
		n, ok := sub.Lookup(id)
		require.True(t, ok, id)
		assert.Equal(t, want, n.Provenance, id)
	}
}

func TestExtract_IsolatedSeeds(t *testing.T) {
	// Anchor-only bubble: both bounds are zero and every hop costs at least
	// one byte and one step, so no edge is ever admitted.
	m := graph.NewMockFactory()
	m.Chain(5, "X", "Y", "M", "Z")

	sub, err := Extract(m.Graph, descriptor("del", []string{"X", "Y"}, []string{"X", "Y"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"X", "Y"}, nodeNames(sub))
	assert.Equal(t, 0, sub.EdgeCount())
	assert.Equal(t, 2, sub.ConnectedComponents())
}

func TestExtract_ZeroLengthSeedsStillExpand(t *testing.T) {
	m := graph.NewMockFactory()
	m.AddSegment("x", 0)
	m.AddSegment("y", 4)
	m.Link("x", "y")

	sub, err := Extract(m.Graph, descriptor("v", []string{"x", "x"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, nodeNames(sub))
	assert.Equal(t, []string{"x-y"}, edgeNames(sub))
}

func TestExtract_FirstWriterWins(t *testing.T) {
	m := graph.NewMockFactory()
	ref, alt := m.AddBubble("snp", "L", "R", 1, 1, 1)
	alt2 := []string{"L", ref[1], "R"}

	sub, err := Extract(m.Graph, descriptor("snp", ref, alt, alt2))
	require.NoError(t, err)

	for _, id := range ref {
		n, _ := sub.Lookup(id)
		assert.Equal(t, graph.Reference, n.Provenance, id)
	}
	n, _ := sub.Lookup(alt[1])
	assert.Equal(t, graph.Alternate, n.Provenance)
}

func TestExtract_UnknownSeed(t *testing.T) {
	m := graph.NewMockFactory()
	m.Chain(5, "A", "B", "C")

	_, err := Extract(m.Graph, descriptor("v", []string{"A", "C"}, []string{"A", "B", "missing"}))
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)

	_, err = Extract(m.Graph, descriptor("v"))
	assert.ErrorIs(t, err, bubble.ErrMalformedBubble)
}

// randomGraph builds a connected random graph with a bubble between n0 and n1.
func randomGraph(seed int64, size, scale int) (*graph.Graph, *bubble.Descriptor) {
	rng := rand.New(rand.NewSource(seed))
	m := graph.NewMockFactory()
	for i := 0; i < size; i++ {
		m.AddSegment(fmt.Sprintf("n%d", i), (1+rng.Intn(20))*scale)
	}
	for i := 1; i < size; i++ {
		m.Link(fmt.Sprintf("n%d", rng.Intn(i)), fmt.Sprintf("n%d", i))
	}
	for i := 0; i < size/2; i++ {
		m.Link(fmt.Sprintf("n%d", rng.Intn(size)), fmt.Sprintf("n%d", rng.Intn(size)))
	}

	a := fmt.Sprintf("n%d", rng.Intn(size))
	b := fmt.Sprintf("n%d", rng.Intn(size))
	mid := fmt.Sprintf("n%d", rng.Intn(size))
	mid2 := fmt.Sprintf("n%d", rng.Intn(size))
	m.Graph.Seal()
	return m.Graph, descriptor("rand", []string{a, mid, b}, []string{a, mid2, mid, b})
}

func TestExtract_NoPhantomEdges(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		g, d := randomGraph(seed, 300, 1)
		sub, err := Extract(g, d)
		require.NoError(t, err)

		for _, id := range d.AllNodeIDs() {
			_, ok := sub.Index(id)
			assert.True(t, ok, "seed %s missing (seed %d)", id, seed)
		}
		for _, e := range sub.Edges() {
			from, to := sub.Node(e.From), sub.Node(e.To)
			require.NotNil(t, from)
			require.NotNil(t, to)
			assert.True(t, g.HasEdge(from.ID, to.ID), "edge %s-%s not in whole graph", from.ID, to.ID)
		}
		assert.LessOrEqual(t, sub.NodeCount(), g.NodeCount())
	}
}

func TestExtract_Monotonic(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		base, d := randomGraph(seed, 200, 1)
		baseBudget, err := ComputeBudget(base, d)
		require.NoError(t, err)
		baseSub, err := Extract(base, d)
		require.NoError(t, err)

		for _, factor := range []int{2, 7} {
			scaled, _ := randomGraph(seed, 200, factor)
			budget, err := ComputeBudget(scaled, d)
			require.NoError(t, err)
			assert.Equal(t, baseBudget.MaxDistance*factor, budget.MaxDistance)
			assert.Equal(t, baseBudget.MaxStep, budget.MaxStep)

			sub, err := Extract(scaled, d)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, sub.NodeCount(), baseSub.NodeCount())
		}
	}
}

func TestExtract_SharedGraphConcurrent(t *testing.T) {
	g, d := randomGraph(42, 2000, 1)
	want, err := Extract(g, d)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*graph.Graph, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub, err := Extract(g, d)
			if err == nil {
				results[i] = sub
			}
		}(i)
	}
	wg.Wait()

	for i, sub := range results {
		require.NotNil(t, sub, "worker %d failed", i)
		assert.Equal(t, nodeNames(want), nodeNames(sub))
		assert.Equal(t, edgeNames(want), edgeNames(sub))
	}
}
