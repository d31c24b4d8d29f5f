// Package web is the operator HTTP surface of punchsync.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"axiapac.com/punchsync/web/handlers"
	"axiapac.com/punchsync/web/middlewares"
)

type Server struct {
	addr   string
	router *gin.Engine
	logger *slog.Logger
}

// NewServer wires the routes. /api/v1 is only mounted when secret is set.
func NewServer(addr string, h *handlers.Handlers, secret []byte, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	if len(secret) > 0 {
		protected := router.Group("/api/v1")
		protected.Use(middlewares.Authentication(secret))
		{
			protected.GET("/status", h.GetStatus)
			protected.GET("/devices", h.ListDevices)
			protected.GET("/watermark", h.GetWatermark)
			protected.PUT("/watermark", h.PutWatermark)
			protected.GET("/snapshot", h.GetSnapshot)
		}
	} else {
		logger.Warn("no signing secret configured, operator API disabled")
	}

	return &Server{addr: addr, router: router, logger: logger}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("status server starting", "addr", s.addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
