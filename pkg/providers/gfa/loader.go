// Package gfa loads GFA v1 segment and link records into a sequence graph.
package gfa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/DrSkyle/bubblescope/pkg/graph"
	"github.com/DrSkyle/bubblescope/pkg/providers"
	"github.com/DrSkyle/bubblescope/pkg/sys/intern"
)

// Stats summarises one load.
type Stats struct {
	Segments int
	// Links counts distinct adjacencies added; DuplicateLinks the L records
	// that repeated one, in either orientation.
	Links          int
	DuplicateLinks int
	SkippedLinks   int
	Ignored        int
}

type link struct {
	from, to string
	line     int
}

// LoadFile loads the GFA at path; gzip content is decompressed.
func LoadFile(ctx context.Context, path string) (*graph.Graph, error) {
	rc, err := providers.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	g, _, err := Load(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Load reads S and L records. Links are applied after every segment is known,
// so record order does not matter; links naming unknown segments are skipped.
// The returned graph is sealed.
func Load(ctx context.Context, r io.Reader) (*graph.Graph, Stats, error) {
	var (
		stats Stats
		links []link
	)
	g := graph.NewGraph()
	names := intern.New(1024)

	sc := providers.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		switch fields[0] {
		case "S":
			if len(fields) < 3 {
				return nil, stats, fmt.Errorf("line %d: segment record needs name and sequence", lineNo)
			}
			seq := fields[2]
			if seq == "*" {
				seq = ""
			}
			g.AddNode(names.Intern(fields[1]), seq, graph.Unspecified)
			stats.Segments++
		case "L":
			if len(fields) < 5 {
				return nil, stats, fmt.Errorf("line %d: link record needs from, orient, to, orient", lineNo)
			}
			// Interned names let the line buffer go while links wait.
			links = append(links, link{from: names.Intern(fields[1]), to: names.Intern(fields[3]), line: lineNo})
		default:
			// H, P, W, C and unknown records carry nothing the graph needs.
			stats.Ignored++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("line %d: %w", lineNo+1, err)
	}

	for _, l := range links {
		before := g.EdgeCount()
		if err := g.AddEdge(l.from, l.to); err != nil {
			stats.SkippedLinks++
			slog.Debug("Skipping GFA link", "line", l.line, "error", err)
			continue
		}
		if g.EdgeCount() > before {
			stats.Links++
		} else {
			stats.DuplicateLinks++
		}
	}
	if stats.SkippedLinks > 0 {
		slog.Warn("GFA links reference unknown segments", "skipped", stats.SkippedLinks)
	}

	g.Seal()
	return g, stats, nil
}
