// Package bubble models structural-variant bubbles: one descriptor per variant,
// each holding the allele traversals that diverge and reconverge in the graph.
package bubble

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformedBubble is returned for descriptors without any traversal.
var ErrMalformedBubble = errors.New("malformed bubble")

// Direction is the orientation of one traversal step.
type Direction byte

const (
	Forward Direction = '>'
	Reverse Direction = '<'
)

// Step is one oriented node visit.
type Step struct {
	ID  string
	Dir Direction
}

// Traversal is one allele path through the bubble.
type Traversal struct {
	Steps []Step
}

// NewTraversal builds a forward traversal over ids.
func NewTraversal(ids ...string) Traversal {
	steps := make([]Step, len(ids))
	for i, id := range ids {
		steps[i] = Step{ID: id, Dir: Forward}
	}
	return Traversal{Steps: steps}
}

// IDs returns the node ids in path order, anchors included.
func (t Traversal) IDs() []string {
	ids := make([]string, len(t.Steps))
	for i, s := range t.Steps {
		ids[i] = s.ID
	}
	return ids
}

// Anchors returns the first and last id.
func (t Traversal) Anchors() (first, last string, ok bool) {
	if len(t.Steps) == 0 {
		return "", "", false
	}
	return t.Steps[0].ID, t.Steps[len(t.Steps)-1].ID, true
}

// Interior returns the ids between the anchors. Paths of two steps or fewer
// have an empty interior.
func (t Traversal) Interior() []string {
	if len(t.Steps) <= 2 {
		return nil
	}
	return t.IDs()[1 : len(t.Steps)-1]
}

// String renders the traversal in AT notation, e.g. ">1<2>3".
func (t Traversal) String() string {
	var b strings.Builder
	for _, s := range t.Steps {
		b.WriteByte(byte(s.Dir))
		b.WriteString(s.ID)
	}
	return b.String()
}

// Descriptor is one bubble. Traversals[0] is REF, the rest are ALT alleles.
type Descriptor struct {
	ID         string
	Chrom      string
	Pos        int
	Traversals []Traversal
}

// Validate checks the descriptor can be sized and seeded.
func (d *Descriptor) Validate() error {
	if len(d.Traversals) == 0 {
		return fmt.Errorf("%w: %s has no allele traversals", ErrMalformedBubble, d.ID)
	}
	return nil
}

// Ref returns the reference traversal.
func (d *Descriptor) Ref() (Traversal, bool) {
	if len(d.Traversals) == 0 {
		return Traversal{}, false
	}
	return d.Traversals[0], true
}

// Alts returns every non-reference traversal.
func (d *Descriptor) Alts() []Traversal {
	if len(d.Traversals) < 2 {
		return nil
	}
	return d.Traversals[1:]
}

// AllNodeIDs returns the distinct ids of all traversals, sorted.
func (d *Descriptor) AllNodeIDs() []string {
	seen := make(map[string]struct{})
	for _, t := range d.Traversals {
		for _, s := range t.Steps {
			seen[s.ID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
