// Package server exposes the filter, ingestion and flag review workflow over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/ingest"
	"github.com/xaenox/safeguard/internal/storage"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	router *gin.Engine
	store  storage.Storage
	gate   *ingest.Gate
	logger *zap.Logger
}

func New(store storage.Storage, gate *ingest.Gate, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router: router,
		store:  store,
		gate:   gate,
		logger: logger,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := s.router.Group("/api/v1")
	{
		api.POST("/filter", s.handleFilter)
		api.POST("/messages", s.handleMessage)
		api.PUT("/profiles/:id", s.handlePutProfile)

		api.GET("/flags", s.handleListFlags)
		api.GET("/flags/:id", s.handleGetFlag)
		api.PATCH("/flags/:id", s.handleReviewFlag)
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
