package graph

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
)

// Large random graph with heavy duplicate insertion: the store must stay
// consistent and whole-graph passes must finish quickly.
func TestGraphChaos(t *testing.T) {
	g := NewGraph()
	nodeCount := 50000
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < nodeCount; i++ {
		id := fmt.Sprintf("seg-%d", i)
		g.AddNode(id, "ACGT", Unspecified)

		if i > 0 {
			target := fmt.Sprintf("seg-%d", rng.Intn(i))
			if err := g.AddEdge(id, target); err != nil {
				t.Fatalf("AddEdge: %v", err)
			}
			// Same adjacency proposed again from the other side.
			if err := g.AddEdge(target, id); err != nil {
				t.Fatalf("AddEdge: %v", err)
			}
		}
	}

	if g.EdgeCount() != nodeCount-1 {
		t.Fatalf("Expected %d edges after dedup, got %d", nodeCount-1, g.EdgeCount())
	}

	done := make(chan int)
	go func() {
		g.Seal()
		done <- g.ConnectedComponents()
	}()

	select {
	case components := <-done:
		if components != 1 {
			t.Errorf("Random spanning tree should be connected, got %d components", components)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Whole-graph pass did not finish in time")
	}
}
