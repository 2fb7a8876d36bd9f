package gml

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/DrSkyle/bubblescope/pkg/graph"
)

var escaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;")

// Encode writes doc as a GML graph. Edges are written as stored, so a
// document exported from a graph carries each undirected pair once.
func Encode(w io.Writer, doc graph.Document) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "graph [")
	for _, n := range doc.Nodes {
		fmt.Fprintln(bw, "\tnode [")
		fmt.Fprintf(bw, "\t\tid %d\n", n.ID)
		fmt.Fprintf(bw, "\t\tlabel \"%s\"\n", escaper.Replace(n.Name))
		fmt.Fprintf(bw, "\t\tsequence \"%s\"\n", escaper.Replace(n.Sequence))
		fmt.Fprintf(bw, "\t\tstatus \"%s\"\n", n.Provenance)
		fmt.Fprintln(bw, "\t]")
	}
	for _, e := range doc.Edges {
		fmt.Fprintln(bw, "\tedge [")
		fmt.Fprintf(bw, "\t\tsource %d\n", e.Source)
		fmt.Fprintf(bw, "\t\ttarget %d\n", e.Target)
		fmt.Fprintln(bw, "\t]")
	}
	fmt.Fprintln(bw, "]")
	return bw.Flush()
}

// Marshal returns the GML text for g.
func Marshal(g *graph.Graph) (string, error) {
	var sb strings.Builder
	if err := Encode(&sb, g.ToDocument()); err != nil {
		return "", err
	}
	return sb.String(), nil
}
