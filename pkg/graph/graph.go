package graph

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ErrNodeNotFound is returned when an id does not resolve to a node in the store.
var ErrNodeNotFound = errors.New("node not found")

// Node is one sequence segment. Index is its slot in the store and is never reused.
type Node struct {
	Index      uint32
	ID         string
	Sequence   string
	Provenance Provenance
}

// Len returns the byte length of the sequence payload.
func (n *Node) Len() int {
	return len(n.Sequence)
}

// Edge is an undirected adjacency stored in canonical order (From <= To).
type Edge struct {
	From uint32
	To   uint32
}

func canonical(a, b uint32) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{From: a, To: b}
}

// Graph is an undirected sequence graph keyed by segment name.
//
// Nodes live in an append-only slice; idMap resolves a name to its slot.
// A Graph is built by a single writer. Once Seal is called it is immutable and
// safe for concurrent reads without locking.
type Graph struct {
	nodes   []*Node
	adj     [][]uint32
	edges   []Edge
	edgeSet map[Edge]struct{}
	idMap   map[string]uint32

	sealed      bool
	fingerprint uint64
}

// NewGraph returns an empty store.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make([]*Node, 0, 64),
		adj:     make([][]uint32, 0, 64),
		edgeSet: make(map[Edge]struct{}),
		idMap:   make(map[string]uint32),
	}
}

// AddNode inserts a node and returns its slot. Re-inserting a known id
// overwrites its sequence and provenance in place and returns the existing slot.
func (g *Graph) AddNode(id, sequence string, prov Provenance) uint32 {
	g.mustBeMutable()

	if idx, exists := g.idMap[id]; exists {
		node := g.slot(idx, id)
		node.Sequence = sequence
		node.Provenance = prov
		return idx
	}

	idx := uint32(len(g.nodes))
	g.idMap[id] = idx
	g.nodes = append(g.nodes, &Node{
		Index:      idx,
		ID:         id,
		Sequence:   sequence,
		Provenance: prov,
	})
	g.adj = append(g.adj, nil)
	return idx
}

// AddEdge connects two existing nodes. Inserting an edge that already exists,
// in either endpoint order, is a no-op.
func (g *Graph) AddEdge(fromID, toID string) error {
	g.mustBeMutable()

	from, ok := g.idMap[fromID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, fromID)
	}
	to, ok := g.idMap[toID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNodeNotFound, toID)
	}
	g.addEdgeIndex(from, to)
	return nil
}

func (g *Graph) addEdgeIndex(from, to uint32) {
	e := canonical(from, to)
	if _, exists := g.edgeSet[e]; exists {
		return
	}
	g.edgeSet[e] = struct{}{}
	g.edges = append(g.edges, e)

	g.adj[from] = append(g.adj[from], to)
	if from != to {
		g.adj[to] = append(g.adj[to], from)
	}
}

// HasEdge reports whether the two ids are adjacent.
func (g *Graph) HasEdge(aID, bID string) bool {
	a, ok := g.idMap[aID]
	if !ok {
		return false
	}
	b, ok := g.idMap[bID]
	if !ok {
		return false
	}
	_, exists := g.edgeSet[canonical(a, b)]
	return exists
}

// Index returns the slot for id.
func (g *Graph) Index(id string) (uint32, bool) {
	idx, ok := g.idMap[id]
	if !ok {
		return 0, false
	}
	g.slot(idx, id)
	return idx, true
}

// Node returns the node in slot idx, or nil if the slot is out of range.
func (g *Graph) Node(idx uint32) *Node {
	if int(idx) < len(g.nodes) {
		return g.nodes[idx]
	}
	return nil
}

// Lookup returns the node named id.
func (g *Graph) Lookup(id string) (*Node, bool) {
	idx, ok := g.Index(id)
	if !ok {
		return nil, false
	}
	return g.nodes[idx], true
}

// Neighbors returns the slots adjacent to idx. The order is unspecified.
func (g *Graph) Neighbors(idx uint32) []uint32 {
	if int(idx) < len(g.adj) {
		return g.adj[idx]
	}
	return nil
}

// SequenceLength returns the payload length of node id.
func (g *Graph) SequenceLength(id string) (int, bool) {
	node, ok := g.Lookup(id)
	if !ok {
		return 0, false
	}
	return node.Len(), true
}

// Nodes returns a snapshot of all nodes in slot order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, len(g.nodes))
	copy(nodes, g.nodes)
	return nodes
}

// Edges returns a snapshot of the deduplicated edge list in insertion order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

// Seal freezes the graph. Any later mutation panics.
func (g *Graph) Seal() {
	if g.sealed {
		return
	}
	h := xxhash.New()
	for _, n := range g.nodes {
		_, _ = h.WriteString(n.ID)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(n.Sequence)
		_, _ = h.Write([]byte{0})
	}
	for _, e := range g.edges {
		_, _ = fmt.Fprintf(h, "%d-%d;", e.From, e.To)
	}
	g.fingerprint = h.Sum64()
	g.sealed = true
}

// Sealed reports whether Seal has been called.
func (g *Graph) Sealed() bool { return g.sealed }

// Fingerprint is a content hash computed by Seal; zero before that.
func (g *Graph) Fingerprint() uint64 { return g.fingerprint }

// DumpStats summarises the store size.
func (g *Graph) DumpStats() string {
	return fmt.Sprintf("Nodes: %d | Edges: %d", len(g.nodes), len(g.edges))
}

func (g *Graph) mustBeMutable() {
	if g.sealed {
		panic("graph: mutation of a sealed graph")
	}
}

// slot returns the node at idx and panics if the id map and node list disagree.
func (g *Graph) slot(idx uint32, id string) *Node {
	if int(idx) >= len(g.nodes) || g.nodes[idx].ID != id {
		panic(fmt.Sprintf("graph: id map diverged from node list at slot %d (%q)", idx, id))
	}
	return g.nodes[idx]
}
