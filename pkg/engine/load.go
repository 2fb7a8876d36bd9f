package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/graph"
	"github.com/DrSkyle/bubblescope/pkg/providers/gfa"
	"github.com/DrSkyle/bubblescope/pkg/providers/vcf"
)

// Inputs is the loaded, read-only state shared by every worker.
type Inputs struct {
	Graph   *graph.Graph
	Bubbles []*bubble.Descriptor
}

// Index maps bubble ids to descriptors. Later duplicates are dropped.
func (in *Inputs) Index() map[string]*bubble.Descriptor {
	idx := make(map[string]*bubble.Descriptor, len(in.Bubbles))
	for _, d := range in.Bubbles {
		if _, dup := idx[d.ID]; !dup {
			idx[d.ID] = d
		}
	}
	return idx
}

// LoadInputs reads the GFA and VCF concurrently. The graph comes back sealed.
func LoadInputs(ctx context.Context, logger *slog.Logger, gfaPath, vcfPath string) (*Inputs, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var in Inputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		graph, err := gfa.LoadFile(gctx, gfaPath)
		if err != nil {
			return err
		}
		in.Graph = graph
		logger.Info("Loaded graph", "path", gfaPath, "stats", graph.DumpStats(), "elapsed", time.Since(start))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		bubbles, err := vcf.LoadFile(gctx, vcfPath)
		if err != nil {
			return err
		}
		in.Bubbles = bubbles
		logger.Info("Loaded variants", "path", vcfPath, "bubbles", len(bubbles), "elapsed", time.Since(start))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}
