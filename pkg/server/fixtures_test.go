package server

import "github.com/DrSkyle/bubblescope/pkg/graph"

func newChain() *graph.Graph {
	m := graph.NewMockFactory()
	m.Chain(4, "1", "2", "3", "4")
	return m.Graph
}
