package graph

// UnionFind is a disjoint-set forest over node slots.
// Not safe for concurrent use.
type UnionFind struct {
	parent []uint32
	rank   []uint8
	sets   int
}

// NewUnionFind creates n singleton sets.
func NewUnionFind(n int) *UnionFind {
	parent := make([]uint32, n)
	for i := range parent {
		parent[i] = uint32(i)
	}
	return &UnionFind{parent: parent, rank: make([]uint8, n), sets: n}
}

// Find returns the set representative, compressing the path on the way.
func (uf *UnionFind) Find(i uint32) uint32 {
	root := i
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[i] != root {
		next := uf.parent[i]
		uf.parent[i] = root
		i = next
	}
	return root
}

// Union merges the sets holding i and j.
func (uf *UnionFind) Union(i, j uint32) {
	rootI := uf.Find(i)
	rootJ := uf.Find(j)
	if rootI == rootJ {
		return
	}

	// Union by rank
	switch {
	case uf.rank[rootI] < uf.rank[rootJ]:
		uf.parent[rootI] = rootJ
	case uf.rank[rootI] > uf.rank[rootJ]:
		uf.parent[rootJ] = rootI
	default:
		uf.parent[rootJ] = rootI
		uf.rank[rootI]++
	}
	uf.sets--
}

// Connected checks connectivity.
func (uf *UnionFind) Connected(i, j uint32) bool {
	return uf.Find(i) == uf.Find(j)
}

// Sets returns the number of disjoint sets.
func (uf *UnionFind) Sets() int { return uf.sets }

// ConnectedComponents counts the connected components of the store.
// An extracted subgraph with isolated seeds has more than one.
func (g *Graph) ConnectedComponents() int {
	uf := NewUnionFind(len(g.nodes))
	for _, e := range g.edges {
		uf.Union(e.From, e.To)
	}
	return uf.Sets()
}
