// Package render converts laid-out subgraphs into the JSON the browser
// client feeds to ECharts.
package render

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/DrSkyle/bubblescope/pkg/gml"
	"github.com/DrSkyle/bubblescope/pkg/graph"
)

type Node struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Status string  `json:"status"`
	Length int     `json:"length"`
}

type Link struct {
	Source int64 `json:"source"`
	Target int64 `json:"target"`
}

// Echart is an ECharts graph series payload.
type Echart struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// FromLayout joins oracle coordinates with the extracted document. Layout
// node ids are the document's internal ids; nodes the document does not know
// keep their numeric id as name.
func FromLayout(layout *gml.Graph, doc graph.Document) *Echart {
	out := &Echart{
		Nodes: make([]Node, 0, len(layout.Nodes)),
		Links: make([]Link, 0, len(layout.Edges)),
	}
	for _, n := range layout.Nodes {
		x, y := n.Position()
		node := Node{ID: n.ID, X: x, Y: y, Name: strconv.FormatInt(n.ID, 10)}
		if n.ID >= 0 && n.ID <= math.MaxUint32 {
			if rec, ok := doc.Node(uint32(n.ID)); ok {
				node.Name = rec.Name
				node.Status = rec.Provenance
				node.Length = len(rec.Sequence)
			}
		}
		out.Nodes = append(out.Nodes, node)
	}
	for _, e := range layout.Edges {
		out.Links = append(out.Links, Link{Source: e.Source, Target: e.Target})
	}
	return out
}

// JSON returns the compact single-line encoding.
func (e *Echart) JSON() ([]byte, error) {
	return json.Marshal(e)
}
