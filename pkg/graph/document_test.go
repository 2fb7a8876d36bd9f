package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToDocument(t *testing.T) {
	g := NewGraph()
	g.AddNode("10", "ACG", Reference)
	g.AddNode("11", "T", Alternate)
	g.AddNode("12", "GG", Reference)
	_ = g.AddEdge("11", "10")
	_ = g.AddEdge("10", "11")
	_ = g.AddEdge("12", "11")

	want := Document{
		Nodes: []NodeRecord{
			{ID: 0, Name: "10", Sequence: "ACG", Provenance: "REF"},
			{ID: 1, Name: "11", Sequence: "T", Provenance: "ALT"},
			{ID: 2, Name: "12", Sequence: "GG", Provenance: "REF"},
		},
		Edges: []EdgeRecord{
			{Source: 0, Target: 1},
			{Source: 1, Target: 2},
		},
	}
	if diff := cmp.Diff(want, g.ToDocument()); diff != "" {
		t.Errorf("ToDocument mismatch (-want +got):\n%s", diff)
	}
}

func TestFromDocument(t *testing.T) {
	doc := Document{
		Nodes: []NodeRecord{
			{ID: 7, Name: "a", Sequence: "AAAA", Provenance: "REF"},
			{ID: 3, Name: "b", Sequence: "C", Provenance: "ALT"},
		},
		Edges: []EdgeRecord{{Source: 3, Target: 7}},
	}

	g, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Fatalf("Unexpected size: %s", g.DumpStats())
	}
	if !g.HasEdge("a", "b") {
		t.Error("Edge a-b missing")
	}
	b, _ := g.Lookup("b")
	if b.Provenance != Alternate || b.Index != 1 {
		t.Errorf("Unexpected node b: %+v", b)
	}

	doc.Edges = append(doc.Edges, EdgeRecord{Source: 3, Target: 99})
	if _, err := FromDocument(doc); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound for dangling edge, got %v", err)
	}
}

func TestDocumentNodeLookup(t *testing.T) {
	doc := Document{Nodes: []NodeRecord{{ID: 5, Name: "x"}, {ID: 0, Name: "y"}}}

	if n, ok := doc.Node(5); !ok || n.Name != "x" {
		t.Errorf("Expected x for id 5, got %+v %v", n, ok)
	}
	if n, ok := doc.Node(0); !ok || n.Name != "y" {
		t.Errorf("Expected y for id 0, got %+v %v", n, ok)
	}
	if _, ok := doc.Node(1); ok {
		t.Error("id 1 should be absent")
	}
}
