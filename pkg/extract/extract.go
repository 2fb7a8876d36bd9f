// Package extract pulls the local neighbourhood of a bubble out of a whole
// variation graph. The search is breadth-first from every allele node and stops
// along a branch once both the distance and the step budget are spent.
package extract

import (
	"fmt"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/graph"
)

type frontier struct {
	slot     uint32
	distance int
	step     int
}

// Extract returns a new graph holding the bubble's alleles and the
// neighbourhood admitted by its budget. g is only read; callers may share a
// sealed graph across goroutines.
func Extract(g graph.Reader, d *bubble.Descriptor) (*graph.Graph, error) {
	sub, _, err := ExtractWithBudget(g, d)
	return sub, err
}

// ExtractWithBudget is Extract that also reports the computed budget.
func ExtractWithBudget(g graph.Reader, d *bubble.Descriptor) (*graph.Graph, Budget, error) {
	budget, err := ComputeBudget(g, d)
	if err != nil {
		return nil, Budget{}, err
	}

	sub := graph.NewGraph()
	visited := make(map[uint32]struct{})
	queue := make([]frontier, 0, 16)

	// Seeds: every traversal node at (0, 0). The REF traversal comes first, so
	// a node shared with an ALT keeps its REF tag.
	for i, t := range d.Traversals {
		prov := graph.Alternate
		if i == 0 {
			prov = graph.Reference
		}
		for _, id := range t.IDs() {
			slot, ok := g.Index(id)
			if !ok {
				return nil, Budget{}, fmt.Errorf("seeding %s: %w: %q", d.ID, graph.ErrNodeNotFound, id)
			}
			if _, seen := visited[slot]; seen {
				continue
			}
			visited[slot] = struct{}{}
			n := g.Node(slot)
			sub.AddNode(n.ID, n.Sequence, prov)
			queue = append(queue, frontier{slot: slot})
		}
	}

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		node := g.Node(cur.slot)
		cost := node.Len()

		for _, next := range g.Neighbors(cur.slot) {
			distance := cur.distance + cost
			step := cur.step + 1
			if !budget.Admits(distance, step) {
				continue
			}

			neighbor := g.Node(next)
			if _, seen := visited[next]; !seen {
				visited[next] = struct{}{}
				sub.AddNode(neighbor.ID, neighbor.Sequence, graph.Reference)
				queue = append(queue, frontier{slot: next, distance: distance, step: step})
			}
			// Both endpoints are in sub here; visited nodes are always inserted.
			if err := sub.AddEdge(node.ID, neighbor.ID); err != nil {
				return nil, Budget{}, err
			}
		}
	}

	return sub, budget, nil
}
