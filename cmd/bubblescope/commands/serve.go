package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/DrSkyle/bubblescope/pkg/cache"
	"github.com/DrSkyle/bubblescope/pkg/config"
	"github.com/DrSkyle/bubblescope/pkg/engine"
	"github.com/DrSkyle/bubblescope/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve bubble layouts to the browser",
		Long: `Loads the graph and variants once, then lays out bubbles on demand.

Endpoints:
  GET /api/variants      bubble ids
  GET /api/layout/:id    browser JSON for one bubble
  GET /healthz           liveness
  GET /metrics           Prometheus metrics

Example:
  bubblescope serve -g graph.gfa -v calls.vcf -p 8888 --static web/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}

	f := cmd.Flags()
	f.IntP("port", "p", config.DefaultPort, "Listen port")
	f.String("static", "", "Directory with the browser client")
	f.String("cache-dir", config.DefaultCacheDir, "Layout cache directory (empty keeps it in memory)")
	f.Duration("cache-ttl", 24*time.Hour, "Layout cache entry lifetime (0 keeps entries)")
	a.bind(f, map[string]string{
		"serve.port":      "port",
		"serve.static":    "static",
		"serve.cache_dir": "cache-dir",
		"serve.cache_ttl": "cache-ttl",
	})
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	orc, err := a.layoutOracle()
	if err != nil {
		return err
	}
	in, err := engine.LoadInputs(ctx, a.logger, cfg.Graph, cfg.Variants)
	if err != nil {
		return err
	}

	cacheCfg := cache.InMemoryConfig()
	if cfg.Serve.CacheDir != "" {
		cacheCfg = cache.DefaultConfig(cfg.Serve.CacheDir)
	}
	cacheCfg.TTL = cfg.Serve.CacheTTL
	cacheCfg.Logger = a.logger.With("component", "cache")
	layouts, err := cache.Open(cacheCfg)
	if err != nil {
		return err
	}
	defer layouts.Close()

	eng, err := engine.New(ctx, in.Graph,
		engine.WithConfig(engine.Config{
			OtelEndpoint: cfg.OtelEndpoint,
			Logger:       a.logger,
		}),
		engine.WithOracle(orc),
	)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Close(shutdownCtx)
	}()

	srv, err := server.New(server.Config{
		Processor:     eng,
		Bubbles:       in.Bubbles,
		Cache:         layouts,
		Fingerprint:   in.Graph.Fingerprint(),
		StaticDir:     cfg.Serve.StaticDir,
		Logger:        a.logger,
		LayoutTimeout: cfg.Layout.Timeout,
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Serve.Port))
}
