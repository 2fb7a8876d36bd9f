package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/DrSkyle/bubblescope/pkg/bubble"
	"github.com/DrSkyle/bubblescope/pkg/cache"
	"github.com/DrSkyle/bubblescope/pkg/version"
)

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Variants int    `json:"variants"`
	Uptime   string `json:"uptime"`
}

// HandleVariants handles GET /api/variants: the sorted bubble ids.
func (s *Server) HandleVariants(c *gin.Context) {
	c.JSON(http.StatusOK, s.ids)
}

// HandleLayout handles GET /api/layout/:id.
//
// A cached layout is returned as is. Otherwise the bubble is processed once,
// even under concurrent requests for the same id, and the result is cached.
// The shared run outlives any single requester; each waiter stops on its own
// disconnect.
func (s *Server) HandleLayout(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	id := c.Param("id")
	logger := s.logger.With("request_id", requestID, "handler", "HandleLayout", "bubble_id", id)

	d, ok := s.bubbles[id]
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "variant " + id + " not found",
			Code:  "VARIANT_NOT_FOUND",
		})
		return
	}

	if s.cache != nil {
		data, err := s.cache.Get(s.fp, id)
		if err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json", data)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("Cache read failed", "error", err)
		}
	}

	ch := s.flight.DoChan(id, func() (interface{}, error) {
		return s.layout(context.WithoutCancel(c.Request.Context()), d)
	})

	var res singleflight.Result
	select {
	case <-c.Request.Context().Done():
		logger.Info("Client went away", "error", c.Request.Context().Err())
		c.Abort()
		return
	case res = <-ch:
	}
	if res.Err != nil {
		logger.Error("Layout failed", slog.String("error", res.Err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: res.Err.Error(),
			Code:  "LAYOUT_FAILED",
		})
		return
	}

	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, "application/json", res.Val.([]byte))
}

// layout processes d and caches the JSON payload.
func (s *Server) layout(ctx context.Context, d *bubble.Descriptor) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	res, err := s.proc.Process(ctx, d)
	if err != nil {
		return nil, err
	}
	data, err := res.JSON()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Put(s.fp, d.ID, data); err != nil {
			s.logger.Warn("Cache write failed", "bubble_id", d.ID, "error", err)
		}
	}
	return data, nil
}

// HandleHealth handles GET /healthz.
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  version.Current,
		Variants: len(s.ids),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	})
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
