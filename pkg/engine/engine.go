package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/engine/swarm"
	"github.com/DrSkyle/bubblescope/pkg/extract"
	"github.com/DrSkyle/bubblescope/pkg/gml"
	"github.com/DrSkyle/bubblescope/pkg/graph"
	"github.com/DrSkyle/bubblescope/pkg/oracle"
	"github.com/DrSkyle/bubblescope/pkg/render"
	"github.com/DrSkyle/bubblescope/pkg/telemetry"
	"github.com/DrSkyle/bubblescope/pkg/version"
)

// ErrPartialResult indicates the run completed but some bubbles failed.
var ErrPartialResult = errors.New("run completed with partial results")

// Config holds engine settings.
type Config struct {
	// Threads is the worker pool size.
	Threads int

	// StrictMode turns any per-bubble failure into ErrPartialResult.
	StrictMode bool

	// Filter holds CEL expressions; Rules are named conditions from a rules file.
	Filter []string
	Rules  []bubble.Rule

	// Telemetry config.
	OtelEndpoint  string
	SkipTelemetry bool // Set true if embedding in an app that already has OTEL

	Logger *slog.Logger
}

// Engine runs the per-bubble pipeline over a shared, sealed graph.
type Engine struct {
	Graph  *graph.Graph
	Oracle oracle.Oracle
	Logger *slog.Logger
	Tracer trace.Tracer

	config   Config
	filter   *bubble.Filter
	progress func(done, failed, total int)
	shutdown telemetry.Shutdown
}

// Option defines a functional configuration override.
type Option func(*Engine)

// New initializes the Engine around g. g is sealed here if it is not already.
func New(ctx context.Context, g *graph.Graph, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, errors.New("engine: nil graph")
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		ReplaceAttr: trimSequences,
	})
	e := &Engine{
		Graph:  g,
		Oracle: oracle.Identity{},
		Logger: slog.New(handler),
		Tracer: otel.Tracer("bubblescope/engine"),
		config: Config{Threads: 1},
	}

	for _, opt := range opts {
		opt(e)
	}

	if !e.config.SkipTelemetry {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    version.AppName,
			ServiceVersion: version.Current,
			Endpoint:       e.config.OtelEndpoint,
		})
		if err != nil {
			e.Logger.Warn("Telemetry failed", "error", err)
		} else {
			e.shutdown = shutdown
			e.Tracer = otel.Tracer("bubblescope/engine")
		}
	}

	rules := append([]bubble.Rule(nil), e.config.Rules...)
	for i, expr := range e.config.Filter {
		rules = append(rules, bubble.Rule{ID: fmt.Sprintf("filter-%d", i), Condition: expr})
	}
	if len(rules) > 0 {
		f, err := bubble.NewRuleFilter(rules)
		if err != nil {
			return nil, fmt.Errorf("invalid bubble filter: %w", err)
		}
		e.filter = f
	}

	e.Graph.Seal()
	return e, nil
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithConcurrency sets the worker pool size.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.config.Threads = n
		}
	}
}

// WithOracle sets the layout oracle.
func WithOracle(o oracle.Oracle) Option {
	return func(e *Engine) {
		if o != nil {
			e.Oracle = o
		}
	}
}

// WithProgress registers a callback invoked after each bubble completes.
// Calls are serialised.
func WithProgress(fn func(done, failed, total int)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// WithConfig sets raw config.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		threads := e.config.Threads
		e.config = cfg
		if cfg.Threads <= 0 {
			e.config.Threads = threads
		}
		if cfg.Logger != nil {
			e.Logger = cfg.Logger
		}
	}
}

// Close flushes telemetry.
func (e *Engine) Close(ctx context.Context) error {
	if e.shutdown == nil {
		return nil
	}
	return e.shutdown(ctx)
}

// Result is one processed bubble.
type Result struct {
	BubbleID string
	Budget   extract.Budget
	Subgraph *graph.Graph
	Chart    *render.Echart
	Duration time.Duration
}

// JSON returns the browser payload.
func (r *Result) JSON() ([]byte, error) {
	return r.Chart.JSON()
}

// Extract runs only the neighbourhood extraction for d.
func (e *Engine) Extract(ctx context.Context, d *bubble.Descriptor) (*graph.Graph, extract.Budget, error) {
	_, span := e.Tracer.Start(ctx, "engine.Extract", trace.WithAttributes(attribute.String("bubble.id", d.ID)))
	defer span.End()

	sub, budget, err := extract.ExtractWithBudget(e.Graph, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return nil, extract.Budget{}, err
	}
	span.SetAttributes(
		attribute.Int("budget.max_distance", budget.MaxDistance),
		attribute.Int("budget.max_step", budget.MaxStep),
		attribute.Int("subgraph.nodes", sub.NodeCount()),
		attribute.Int("subgraph.edges", sub.EdgeCount()),
	)
	return sub, budget, nil
}

// Process extracts, lays out and renders one bubble.
func (e *Engine) Process(ctx context.Context, d *bubble.Descriptor) (*Result, error) {
	ctx, span := e.Tracer.Start(ctx, "engine.ProcessBubble", trace.WithAttributes(attribute.String("bubble.id", d.ID)))
	defer span.End()
	start := time.Now()

	res, err := e.process(ctx, d)
	elapsed := time.Since(start)
	extractionDuration.Observe(elapsed.Seconds())
	if err != nil {
		extractionsTotal.WithLabelValues(resultLabel(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "bubble failed")
		return nil, err
	}
	extractionsTotal.WithLabelValues("success").Inc()
	subgraphNodes.Observe(float64(res.Subgraph.NodeCount()))
	res.Duration = elapsed
	return res, nil
}

func (e *Engine) process(ctx context.Context, d *bubble.Descriptor) (*Result, error) {
	sub, budget, err := e.Extract(ctx, d)
	if err != nil {
		return nil, err
	}

	doc := sub.ToDocument()
	text, err := gml.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", d.ID, err)
	}

	_, lspan := e.Tracer.Start(ctx, "engine.Layout")
	laid, err := e.Oracle.Layout(ctx, text)
	lspan.End()
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", d.ID, err)
	}
	if laid == "" {
		return nil, fmt.Errorf("layout %s: %w", d.ID, oracle.ErrEmptyLayout)
	}

	layout, err := gml.Unmarshal(laid)
	if err != nil {
		return nil, fmt.Errorf("decode layout %s: %w", d.ID, err)
	}

	return &Result{
		BubbleID: d.ID,
		Budget:   budget,
		Subgraph: sub,
		Chart:    render.FromLayout(layout, doc),
	}, nil
}

// Failure records one bubble that could not be processed.
type Failure struct {
	BubbleID string
	Err      error
}

// Summary aggregates a Run.
type Summary struct {
	Total     int
	Filtered  int
	Succeeded int
	Failed    []Failure
	Elapsed   time.Duration
}

// Run processes bubbles on a fixed-size pool. emit receives each successful
// result, one call at a time, in completion order. A failing bubble (or a
// failing emit) is logged and skipped; siblings keep running.
func (e *Engine) Run(ctx context.Context, bubbles []*bubble.Descriptor, emit func(*Result) error) (summary Summary, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Run")
	defer span.End()

	// Crash safety.
	defer e.recoverPanic(ctx, &err)

	start := time.Now()
	selected := make([]*bubble.Descriptor, 0, len(bubbles))
	for _, d := range bubbles {
		keep, ferr := e.filter.Match(d)
		if ferr != nil {
			e.Logger.Warn("Filter evaluation failed", "bubble_id", d.ID, "error", ferr)
		}
		if !keep {
			summary.Filtered++
			continue
		}
		selected = append(selected, d)
	}
	summary.Total = len(selected)

	e.Logger.Info("Starting BubbleScope engine",
		"bubbles", summary.Total,
		"filtered", summary.Filtered,
		"concurrency", e.config.Threads,
		"graph", e.Graph.DumpStats(),
	)

	var (
		mu   sync.Mutex
		done int
	)
	finish := func(f *Failure) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if f != nil {
			summary.Failed = append(summary.Failed, *f)
		} else {
			summary.Succeeded++
		}
		if e.progress != nil {
			e.progress(done, len(summary.Failed), summary.Total)
		}
	}
	var emitMu sync.Mutex

	pool := swarm.NewEngine(e.config.Threads, swarm.WithErrorHandler(func(err error) {
		if errors.Is(err, swarm.ErrTaskPanic) {
			e.Logger.Error("Worker recovered from panic", "error", err)
		}
	}))
	pool.Start(ctx)
	defer pool.Stop()

	for _, d := range selected {
		d := d
		task := func(ctx context.Context) (taskErr error) {
			defer func() {
				if r := recover(); r != nil {
					taskErr = fmt.Errorf("%w: %v", swarm.ErrTaskPanic, r)
				}
				if taskErr != nil {
					e.Logger.Warn("Skipping bubble", "bubble_id", d.ID, "error", taskErr)
					finish(&Failure{BubbleID: d.ID, Err: taskErr})
				} else {
					finish(nil)
				}
			}()

			res, err := e.Process(ctx, d)
			if err != nil {
				return err
			}
			if emit == nil {
				return nil
			}
			emitMu.Lock()
			defer emitMu.Unlock()
			if err := emit(res); err != nil {
				return fmt.Errorf("emit %s: %w", d.ID, err)
			}
			return nil
		}
		if err := pool.Submit(ctx, task); err != nil {
			return summary, err
		}
	}
	pool.Wait()
	summary.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Int("run.total", summary.Total),
		attribute.Int("run.failed", len(summary.Failed)),
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if len(summary.Failed) > 0 {
		span.SetAttributes(attribute.Bool("run.partial", true))
		if e.config.StrictMode {
			e.Logger.Error("Strict Mode: Failing due to partial results", "failed", len(summary.Failed))
			return summary, ErrPartialResult
		}
		e.Logger.Warn("Run finished with partial errors (StrictMode=false)", "failed", len(summary.Failed))
	}
	return summary, nil
}

// recoverPanic converts a panic on the driver goroutine into an error.
func (e *Engine) recoverPanic(ctx context.Context, err *error) {
	if r := recover(); r != nil {
		_, span := e.Tracer.Start(ctx, "CriticalPanic")
		stack := debug.Stack()

		span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "CRITICAL FAILURE")
		span.SetAttributes(
			attribute.String("crash.stack", string(stack)),
			attribute.String("crash.reason", fmt.Sprintf("%v", r)),
		)
		span.End()

		e.Logger.Error("CRITICAL FAILURE", "error", r, "stack", string(stack))
		*err = fmt.Errorf("engine panic: %v", r)
	}
}

// trimSequences keeps multi-kilobase sequences out of log lines.
func trimSequences(groups []string, a slog.Attr) slog.Attr {
	if a.Key != "sequence" || a.Value.Kind() != slog.KindString {
		return a
	}
	if s := a.Value.String(); len(s) > 32 {
		return slog.String(a.Key, fmt.Sprintf("%s...(%d bp)", s[:32], len(s)))
	}
	return a
}
