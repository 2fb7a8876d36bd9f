package extract

import (
	"fmt"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/graph"
)

// Budget bounds the neighbourhood search for one bubble. Distance is measured
// in sequence bytes and step in hops; the two are never combined.
type Budget struct {
	MaxDistance int
	MaxStep     int
}

// Admits reports whether a frontier entry at (distance, step) is within bounds.
// Either bound is sufficient on its own.
func (b Budget) Admits(distance, step int) bool {
	return distance <= b.MaxDistance || step <= b.MaxStep
}

func (b Budget) String() string {
	return fmt.Sprintf("distance<=%d|step<=%d", b.MaxDistance, b.MaxStep)
}

// PathLength sums the sequence lengths of ids.
func PathLength(g graph.Reader, ids []string) (int, error) {
	total := 0
	for _, id := range ids {
		n, ok := g.SequenceLength(id)
		if !ok {
			return 0, fmt.Errorf("%w: %q", graph.ErrNodeNotFound, id)
		}
		total += n
	}
	return total, nil
}

// ComputeBudget sizes a bubble from the interiors of all its traversals.
// Anchors do not count towards either bound.
func ComputeBudget(g graph.Reader, d *bubble.Descriptor) (Budget, error) {
	if err := d.Validate(); err != nil {
		return Budget{}, err
	}

	var b Budget
	for i, t := range d.Traversals {
		interior := t.Interior()
		length, err := PathLength(g, interior)
		if err != nil {
			return Budget{}, fmt.Errorf("sizing traversal %d of %s: %w", i, d.ID, err)
		}
		b.MaxDistance = max(b.MaxDistance, length)
		b.MaxStep = max(b.MaxStep, len(interior))
	}
	return b, nil
}
