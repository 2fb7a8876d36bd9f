package graph

import "fmt"

// NodeRecord is one node of an interchange document.
type NodeRecord struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	Sequence   string `json:"sequence"`
	Provenance string `json:"status"`
}

// EdgeRecord is one undirected edge, lower id first.
type EdgeRecord struct {
	Source uint32 `json:"source"`
	Target uint32 `json:"target"`
}

// Document is the generic node-list / edge-list form handed to the layout oracle.
type Document struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// Node returns the record with internal id, if present.
func (d Document) Node(id uint32) (NodeRecord, bool) {
	if int(id) < len(d.Nodes) && d.Nodes[id].ID == id {
		return d.Nodes[id], true
	}
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeRecord{}, false
}

// ToDocument exports the store. Internal ids are slot indices.
func (g *Graph) ToDocument() Document {
	doc := Document{
		Nodes: make([]NodeRecord, 0, len(g.nodes)),
		Edges: make([]EdgeRecord, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		doc.Nodes = append(doc.Nodes, NodeRecord{
			ID:         n.Index,
			Name:       n.ID,
			Sequence:   n.Sequence,
			Provenance: n.Provenance.String(),
		})
	}
	for _, e := range g.edges {
		doc.Edges = append(doc.Edges, EdgeRecord{Source: e.From, Target: e.To})
	}
	return doc
}

// FromDocument rebuilds a store from a document. Slots are renumbered in
// document order; edges referencing unknown ids fail with ErrNodeNotFound.
func FromDocument(doc Document) (*Graph, error) {
	g := NewGraph()
	names := make(map[uint32]string, len(doc.Nodes))
	for _, rec := range doc.Nodes {
		if _, dup := names[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d in document", rec.ID)
		}
		prov, err := ParseProvenance(rec.Provenance)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", rec.ID, err)
		}
		names[rec.ID] = rec.Name
		g.AddNode(rec.Name, rec.Sequence, prov)
	}
	for _, rec := range doc.Edges {
		from, ok := names[rec.Source]
		if !ok {
			return nil, fmt.Errorf("%w: edge source %d", ErrNodeNotFound, rec.Source)
		}
		to, ok := names[rec.Target]
		if !ok {
			return nil, fmt.Errorf("%w: edge target %d", ErrNodeNotFound, rec.Target)
		}
		if err := g.AddEdge(from, to); err != nil {
			return nil, err
		}
	}
	return g, nil
}
