// Package server exposes bubble layouts over HTTP for the browser client.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/singleflight"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/cache"
	"github.com/DrSkyle/bubblescope/pkg/engine"
	"github.com/DrSkyle/bubblescope/pkg/version"
)

// Processor lays out one bubble. *engine.Engine satisfies it.
type Processor interface {
	Process(ctx context.Context, d *bubble.Descriptor) (*engine.Result, error)
}

var _ Processor = (*engine.Engine)(nil)

type Config struct {
	Processor Processor
	Bubbles   []*bubble.Descriptor

	// Cache is optional. Fingerprint scopes cached entries to one graph.
	Cache       *cache.Cache
	Fingerprint uint64

	// StaticDir serves the browser client for unmatched paths.
	StaticDir string
	Logger    *slog.Logger

	// LayoutTimeout bounds one shared layout run. Zero means no limit.
	LayoutTimeout time.Duration
}

type Server struct {
	router  *gin.Engine
	proc    Processor
	bubbles map[string]*bubble.Descriptor
	ids     []string
	cache   *cache.Cache
	fp      uint64
	logger  *slog.Logger
	flight  singleflight.Group
	timeout time.Duration
	started time.Time
}

// New builds the router. It does not start listening.
func New(cfg Config) (*Server, error) {
	if cfg.Processor == nil {
		return nil, errors.New("server: processor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		proc:    cfg.Processor,
		bubbles: make(map[string]*bubble.Descriptor, len(cfg.Bubbles)),
		ids:     make([]string, 0, len(cfg.Bubbles)),
		cache:   cfg.Cache,
		fp:      cfg.Fingerprint,
		logger:  logger,
		timeout: cfg.LayoutTimeout,
		started: time.Now(),
	}
	for _, d := range cfg.Bubbles {
		if _, dup := s.bubbles[d.ID]; dup {
			continue
		}
		s.bubbles[d.ID] = d
		s.ids = append(s.ids, d.ID)
	}
	sort.Strings(s.ids)

	router := gin.New()
	// Bubble ids may contain escaped slashes.
	router.UseRawPath = true
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(version.AppName))
	router.Use(requestLogger(logger))

	setupRoutes(router, s)
	if cfg.StaticDir != "" {
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.StaticDir))))
	} else {
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: "NOT_FOUND"})
		})
	}
	s.router = router
	return s, nil
}

func setupRoutes(router *gin.Engine, s *Server) {
	api := router.Group("/api")
	{
		api.GET("/variants", s.HandleVariants)
		api.GET("/layout/:id", s.HandleLayout)
	}
	router.GET("/healthz", s.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", "addr", addr, "variants", len(s.ids))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := getOrCreateRequestID(c)
		c.Next()
		logger.Debug("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
