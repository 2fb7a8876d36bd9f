package gml

import "fmt"

// Graph is the typed view of a top-level `graph [ ... ]` block.
type Graph struct {
	ID       *int64
	Directed bool
	Label    string
	Nodes    []Node
	Edges    []Edge
}

type Node struct {
	ID    int64
	Label string
	Attrs *Object
}

// Position returns the node's `graphics [ x y ]` coordinates, or (0, 0).
func (n Node) Position() (x, y float64) {
	g, ok := n.Attrs.Get("graphics")
	if !ok || g.Kind != ListKind {
		return 0, 0
	}
	if v, ok := g.List.Get("x"); ok {
		x, _ = v.Number()
	}
	if v, ok := g.List.Get("y"); ok {
		y, _ = v.Number()
	}
	return x, y
}

// Attr returns a string attribute of the node.
func (n Node) Attr(key string) (string, bool) {
	v, ok := n.Attrs.Get(key)
	if !ok || v.Kind != StringKind {
		return "", false
	}
	return v.Str, true
}

type Edge struct {
	Source int64
	Target int64
	Label  string
}

// Unmarshal parses and decodes GML text.
func Unmarshal(text string) (*Graph, error) {
	obj, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Decode(obj)
}

// Decode extracts the first `graph` block of obj.
func Decode(obj *Object) (*Graph, error) {
	root, ok := obj.Get("graph")
	if !ok {
		return nil, fmt.Errorf("%w: no graph block", ErrInvalidGML)
	}
	if root.Kind != ListKind {
		return nil, fmt.Errorf("%w: graph is %s, expected a list", ErrInvalidGML, root)
	}
	body := root.List

	g := &Graph{}
	if v, ok := body.Get("id"); ok {
		if v.Kind != IntKind {
			return nil, fmt.Errorf("%w: graph id %s is not an int", ErrInvalidGML, v)
		}
		id := v.Int
		g.ID = &id
	}
	if v, ok := body.Get("directed"); ok {
		g.Directed = v.Kind == IntKind && v.Int == 1
	}
	if v, ok := body.Get("label"); ok && v.Kind == StringKind {
		g.Label = v.Str
	}

	for i, v := range body.All("node") {
		if v.Kind != ListKind {
			return nil, fmt.Errorf("%w: node %d is %s, expected a list", ErrInvalidGML, i, v)
		}
		id, err := intAttr(v.List, "id")
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		n := Node{ID: id, Attrs: v.List}
		n.Label, _ = n.Attr("label")
		g.Nodes = append(g.Nodes, n)
	}

	for i, v := range body.All("edge") {
		if v.Kind != ListKind {
			return nil, fmt.Errorf("%w: edge %d is %s, expected a list", ErrInvalidGML, i, v)
		}
		src, err := intAttr(v.List, "source")
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		dst, err := intAttr(v.List, "target")
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		e := Edge{Source: src, Target: dst}
		if l, ok := v.List.Get("label"); ok && l.Kind == StringKind {
			e.Label = l.Str
		}
		g.Edges = append(g.Edges, e)
	}
	return g, nil
}

func intAttr(o *Object, key string) (int64, error) {
	v, ok := o.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidGML, key)
	}
	if v.Kind != IntKind {
		return 0, fmt.Errorf("%w: %s %s is not an int", ErrInvalidGML, key, v)
	}
	return v.Int, nil
}
