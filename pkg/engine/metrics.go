package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/graph"
	"github.com/DrSkyle/bubblescope/pkg/oracle"
)

var (
	// extractionsTotal counts processed bubbles by result.
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bubblescope_extractions_total",
		Help: "Processed bubbles by result",
	}, []string{"result"})

	// extractionDuration tracks end-to-end time per bubble, layout included.
	extractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bubblescope_extraction_duration_seconds",
		Help:    "Per-bubble processing duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms to ~16s
	})

	// subgraphNodes tracks the size of extracted neighbourhoods.
	subgraphNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bubblescope_subgraph_nodes",
		Help:    "Nodes per extracted subgraph",
		Buckets: []float64{2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})
)

func resultLabel(err error) string {
	switch {
	case errors.Is(err, graph.ErrNodeNotFound):
		return "node_not_found"
	case errors.Is(err, bubble.ErrMalformedBubble):
		return "malformed"
	case errors.Is(err, oracle.ErrLayoutFailed), errors.Is(err, oracle.ErrEmptyLayout):
		return "layout_failed"
	default:
		return "error"
	}
}
