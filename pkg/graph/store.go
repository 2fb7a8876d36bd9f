package graph

// Reader is the read-only view the extraction engine walks.
type Reader interface {
	// Lookups.
	Index(id string) (uint32, bool)
	Node(idx uint32) *Node
	SequenceLength(id string) (int, bool)

	// Adjacency.
	Neighbors(idx uint32) []uint32
}

var _ Reader = (*Graph)(nil)
