package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/config"
	"github.com/DrSkyle/bubblescope/pkg/engine"
	"github.com/DrSkyle/bubblescope/pkg/storage"
	"github.com/DrSkyle/bubblescope/pkg/tui"
)

func newGenerateCmd(a *app) *cobra.Command {
	var progress bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Lay out every bubble in a batch",
		Long: `Extracts the neighbourhood of every bubble in the VCF, runs the layout program
on it and writes one browser JSON document per bubble.

Without --output each result is printed as "<bubble id>\t<json>".
With --output results go to <dir>/<bubble id>.json or s3://bucket/prefix/<bubble id>.json.

Example:
  bubblescope generate -g graph.gfa -v calls.vcf -@ 8 --output layouts/
  bubblescope generate -g graph.gfa.gz -v calls.vcf.gz --filter 'alleles > 2' --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, progress)
		},
	}

	f := cmd.Flags()
	f.IntP("threads", "@", config.DefaultThreads, "Worker threads")
	f.String("output", "", "Output directory or s3://bucket/prefix (default stdout)")
	f.String("s3-endpoint", "", "Custom S3 endpoint for --output s3://...")
	f.StringArray("filter", nil, "CEL expression a bubble must satisfy (repeatable)")
	f.String("rules", "", "YAML file of named CEL rules")
	f.Bool("strict", false, "Exit non-zero if any bubble fails")
	f.BoolVar(&progress, "progress", true, "Show a progress bar when stderr is a terminal")
	a.bind(f, map[string]string{
		"threads":     "threads",
		"output":      "output",
		"s3_endpoint": "s3-endpoint",
		"filter":      "filter",
		"rules":       "rules",
		"strict":      "strict",
	})
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command, progress bool) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	var rules []bubble.Rule
	if cfg.RulesFile != "" {
		var err error
		if rules, err = bubble.LoadRules(cfg.RulesFile); err != nil {
			return err
		}
	}
	orc, err := a.layoutOracle()
	if err != nil {
		return err
	}

	var store storage.BlobStore
	if cfg.Output != "" {
		var opts []storage.S3Option
		if cfg.S3Endpoint != "" {
			opts = append(opts, storage.WithEndpoint(cfg.S3Endpoint))
		}
		if store, err = storage.Open(ctx, cfg.Output, opts...); err != nil {
			return err
		}
	}

	in, err := engine.LoadInputs(ctx, a.logger, cfg.Graph, cfg.Variants)
	if err != nil {
		return err
	}

	var display *tui.Display
	logger := a.logger
	if progress {
		display = tui.NewDisplay(cmd.ErrOrStderr(), len(in.Bubbles))
	}
	if display != nil {
		// Info lines would tear the progress bar.
		if logger, err = newLogger(cmd.ErrOrStderr(), config.LogConfig{Level: "warn", Format: cfg.Log.Format}); err != nil {
			return err
		}
	}

	eng, err := engine.New(ctx, in.Graph,
		engine.WithConfig(engine.Config{
			Threads:      cfg.Threads,
			StrictMode:   cfg.Strict,
			Filter:       cfg.Filter,
			Rules:        rules,
			OtelEndpoint: cfg.OtelEndpoint,
			Logger:       logger,
		}),
		engine.WithOracle(orc),
		engine.WithProgress(display.Progress),
	)
	if err != nil {
		display.Finish(err)
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Close(shutdownCtx)
	}()

	out := cmd.OutOrStdout()
	emit := func(r *engine.Result) error {
		data, err := r.JSON()
		if err != nil {
			return err
		}
		if store != nil {
			return store.Put(ctx, storage.ResultKey(r.BubbleID), data)
		}
		_, err = fmt.Fprintf(out, "%s\t%s\n", r.BubbleID, data)
		return err
	}

	summary, runErr := eng.Run(ctx, in.Bubbles, emit)
	display.Finish(runErr)
	printSummary(cmd.ErrOrStderr(), summary)
	return runErr
}

func printSummary(w io.Writer, s engine.Summary) {
	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF99"))
	bad := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0055"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))

	line := ok.Render(fmt.Sprintf("%d laid out", s.Succeeded))
	if n := len(s.Failed); n > 0 {
		line += ", " + bad.Render(fmt.Sprintf("%d failed", n))
	}
	if s.Filtered > 0 {
		line += ", " + dim.Render(fmt.Sprintf("%d filtered", s.Filtered))
	}
	fmt.Fprintf(w, "%s %s\n", line, dim.Render(fmt.Sprintf("in %s", s.Elapsed.Round(time.Millisecond))))
	for _, f := range s.Failed {
		fmt.Fprintf(w, "  %s %s\n", bad.Render(f.BubbleID), dim.Render(f.Err.Error()))
	}
}
