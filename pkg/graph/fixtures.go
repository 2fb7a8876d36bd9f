package graph

import (
	"fmt"
	"strings"
)

// MockFactory constructs graph scenarios for testing.
type MockFactory struct {
	Graph *Graph
}

func NewMockFactory() *MockFactory {
	return &MockFactory{
		Graph: NewGraph(),
	}
}

// AddSegment adds a whole-graph node whose sequence is length copies of 'A'.
func (m *MockFactory) AddSegment(id string, length int) {
	m.Graph.AddNode(id, strings.Repeat("A", length), Unspecified)
}

// Link connects two segments, panicking on unknown ids.
func (m *MockFactory) Link(from, to string) {
	if err := m.Graph.AddEdge(from, to); err != nil {
		panic(err)
	}
}

// Chain adds segments ids[0]..ids[n-1] of equal length and links them in order.
func (m *MockFactory) Chain(length int, ids ...string) {
	for i, id := range ids {
		if _, ok := m.Graph.Index(id); !ok {
			m.AddSegment(id, length)
		}
		if i > 0 {
			m.Link(ids[i-1], id)
		}
	}
}

// AddBubble adds a simple REF/ALT bubble between two anchors: the ref branch
// has refNodes segments and the alt branch altNodes, all of nodeLen bases.
// Segment names are prefixed with name.
func (m *MockFactory) AddBubble(name, left, right string, refNodes, altNodes, nodeLen int) (ref, alt []string) {
	branch := func(tag string, count int) []string {
		path := []string{left}
		for i := 0; i < count; i++ {
			path = append(path, fmt.Sprintf("%s.%s%d", name, tag, i))
		}
		path = append(path, right)
		m.Chain(nodeLen, path...)
		return path
	}
	return branch("r", refNodes), branch("a", altNodes)
}
