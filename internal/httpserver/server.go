// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package httpserver serves bridge health, metrics, the last decoded
// frame and a command endpoint
package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Thermoquad/aldestat/internal/config"
	"github.com/Thermoquad/aldestat/pkg/aldes"
)

// Backend is the part of the bridge the API needs
type Backend interface {
	LastFrame() *aldes.DecodedFrame
	Stats() aldes.StatsSnapshot
	Connected() bool
	SendCommand(ctx context.Context, cmd aldes.Command) ([]byte, error)
}

// Server wraps the gin engine and its http.Server
type Server struct {
	srv    *http.Server
	engine *gin.Engine
	log    *zap.Logger
}

// New builds the router. metricsHandler may be nil.
func New(cfg config.HTTPConfig, backend Backend, metricsHandler http.Handler, log *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	h := &handlers{backend: backend}
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", h.ready)
	if metricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(metricsHandler))
	}

	api := r.Group("/api")
	api.GET("/frame", h.frame)
	api.GET("/stats", h.stats)
	api.POST("/command", h.command)

	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		engine: r,
		log:    log,
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown; http.ErrServerClosed is not an error
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type handlers struct {
	backend Backend
}

func (h *handlers) ready(c *gin.Context) {
	if h.backend.Connected() {
		c.String(http.StatusOK, "ready")
		return
	}
	c.String(http.StatusServiceUnavailable, "not-ready")
}

type frameResponse struct {
	Timestamp time.Time           `json:"timestamp"`
	FieldMap  string              `json:"field_map"`
	Raw       string              `json:"raw"`
	Fields    *aldes.DecodedFrame `json:"fields"`
}

func (h *handlers) frame(c *gin.Context) {
	frame := h.backend.LastFrame()
	if frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame received yet"})
		return
	}
	c.JSON(http.StatusOK, frameResponse{
		Timestamp: frame.Timestamp(),
		FieldMap:  frame.FieldMapVersion(),
		Raw:       aldes.FormatHex(frame.Raw()),
		Fields:    frame,
	})
}

func (h *handlers) stats(c *gin.Context) {
	s := h.backend.Stats()
	c.JSON(http.StatusOK, gin.H{
		"total_frames":       s.TotalFrames,
		"valid_frames":       s.ValidFrames,
		"checksum_errors":    s.ChecksumErrors,
		"length_errors":      s.LengthErrors,
		"unavailable_fields": s.UnavailableFields,
		"discarded_bytes":    s.DiscardedBytes,
		"commands_sent":      s.CommandsSent,
		"commands_rejected":  s.CommandsRejected,
		"frame_rate":         s.FrameRate,
	})
}

func (h *handlers) command(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 4096))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd, err := aldes.ParseCommand(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	frame, err := h.backend.SendCommand(c.Request.Context(), cmd)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"type": cmd.Kind, "frame": aldes.FormatHex(frame)})
	case errors.Is(err, aldes.ErrInvalidCommand), errors.Is(err, aldes.ErrEncoding):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	}
}
