package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/cache"
	"github.com/DrSkyle/bubblescope/pkg/engine"
	"github.com/DrSkyle/bubblescope/pkg/oracle"
	"github.com/DrSkyle/bubblescope/pkg/render"
)

type fakeProcessor struct {
	calls int64
	err   error
}

func (f *fakeProcessor) Process(ctx context.Context, d *bubble.Descriptor) (*engine.Result, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &engine.Result{
		BubbleID: d.ID,
		Chart: &render.Echart{
			Nodes: []render.Node{{ID: 0, Name: d.ID, Status: "REF"}},
			Links: []render.Link{},
		},
	}, nil
}

func bubbles() []*bubble.Descriptor {
	return []*bubble.Descriptor{
		{ID: "v2", Traversals: []bubble.Traversal{bubble.NewTraversal("1", "2")}},
		{ID: ">1>4", Traversals: []bubble.Traversal{bubble.NewTraversal("1", "4")}},
		{ID: "v2", Traversals: []bubble.Traversal{bubble.NewTraversal("9")}},
	}
}

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleVariants(t *testing.T) {
	s := newServer(t, Config{Processor: &fakeProcessor{}, Bubbles: bubbles()})

	w := get(s, "/api/variants")
	require.Equal(t, http.StatusOK, w.Code)

	var ids []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ids))
	assert.Equal(t, []string{">1>4", "v2"}, ids)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandleLayout(t *testing.T) {
	proc := &fakeProcessor{}
	c, err := cache.Open(cache.InMemoryConfig())
	require.NoError(t, err)
	defer c.Close()

	s := newServer(t, Config{Processor: proc, Bubbles: bubbles(), Cache: c, Fingerprint: 42})

	path := "/api/layout/" + url.PathEscape(">1>4")
	w := get(s, path)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"nodes":[{"id":0,"name":">1>4","x":0,"y":0,"status":"REF","length":0}],"links":[]}`, w.Body.String())

	w = get(s, path)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.EqualValues(t, 1, atomic.LoadInt64(&proc.calls))
}

// blockingProcessor holds every run until release is closed.
type blockingProcessor struct {
	fakeProcessor
	started chan struct{}
	release chan struct{}
}

func (b *blockingProcessor) Process(ctx context.Context, d *bubble.Descriptor) (*engine.Result, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.fakeProcessor.Process(ctx, d)
}

func TestHandleLayout_ClientCancelDoesNotFailOthers(t *testing.T) {
	proc := &blockingProcessor{started: make(chan struct{}, 1), release: make(chan struct{})}
	c, err := cache.Open(cache.InMemoryConfig())
	require.NoError(t, err)
	defer c.Close()
	s := newServer(t, Config{Processor: proc, Bubbles: bubbles(), Cache: c, Fingerprint: 7})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/layout/v2", nil).WithContext(ctx)
		s.Handler().ServeHTTP(w, req)
		first <- w
	}()

	select {
	case <-proc.started:
	case <-time.After(5 * time.Second):
		t.Fatal("layout never started")
	}
	cancel()
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled request did not return")
	}

	second := make(chan *httptest.ResponseRecorder, 1)
	go func() { second <- get(s, "/api/layout/v2") }()
	time.Sleep(20 * time.Millisecond)
	close(proc.release)

	var w *httptest.ResponseRecorder
	select {
	case w = <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("live request did not return")
	}
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.EqualValues(t, 1, atomic.LoadInt64(&proc.calls))

	w = get(s, "/api/layout/v2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}

func TestHandleLayout_Timeout(t *testing.T) {
	proc := &blockingProcessor{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := newServer(t, Config{Processor: proc, Bubbles: bubbles(), LayoutTimeout: 20 * time.Millisecond})

	w := get(s, "/api/layout/v2")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "LAYOUT_FAILED", body.Code)
	assert.Contains(t, body.Error, "deadline exceeded")
}

func TestHandleVariants_Empty(t *testing.T) {
	s := newServer(t, Config{Processor: &fakeProcessor{}})

	w := get(s, "/api/variants")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHandleLayout_Errors(t *testing.T) {
	s := newServer(t, Config{Processor: &fakeProcessor{err: errors.New("fm3 exploded")}, Bubbles: bubbles()})

	w := get(s, "/api/layout/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VARIANT_NOT_FOUND", body.Code)

	w = get(s, "/api/layout/v2")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "LAYOUT_FAILED", body.Code)
	assert.Contains(t, body.Error, "fm3 exploded")
}

func TestHandleLayout_RealEngine(t *testing.T) {
	g := newChain()
	eng, err := engine.New(context.Background(), g,
		engine.WithConfig(engine.Config{SkipTelemetry: true}),
		engine.WithOracle(oracle.Identity{}),
	)
	require.NoError(t, err)

	s := newServer(t, Config{Processor: eng, Bubbles: bubbles()})
	w := get(s, "/api/layout/v2")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var chart render.Echart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chart))
	assert.NotEmpty(t, chart.Nodes)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, Config{Processor: &fakeProcessor{}, Bubbles: bubbles()})

	w := get(s, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Variants)

	w = get(s, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>bubbles</html>"), 0o644))

	s := newServer(t, Config{Processor: &fakeProcessor{}, StaticDir: dir})
	w := get(s, "/index.html")
	// http.FileServer redirects /index.html to /.
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	w = get(s, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bubbles")

	bare := newServer(t, Config{Processor: &fakeProcessor{}})
	w = get(bare, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNew_RequiresProcessor(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
