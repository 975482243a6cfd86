// Package httpapi exposes asynchronous broadcasts, job tracking and delivery
// statistics over a JSON API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/gateway"
	"NewsBroadcaster/internal/ports"
	"NewsBroadcaster/internal/usecase"
)

// Pipeline is the part of the use cases the API triggers.
type Pipeline interface {
	BroadcastArticle(ctx context.Context, articleID int64, selector domain.RecipientSelector, kind gateway.Kind, progress usecase.Progress) (usecase.Report, error)
	Announce(ctx context.Context, message string, selector domain.RecipientSelector, kind gateway.Kind, progress usecase.Progress) (usecase.Report, error)
}

// Deps wires the handlers.
type Deps struct {
	Pipeline       Pipeline
	Jobs           *usecase.Jobs
	Stats          ports.DeliveryReporter
	Metrics        http.Handler
	DefaultGateway gateway.Kind
	Logger         *slog.Logger
}

type handlers struct {
	deps Deps
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Logger))

	h := &handlers{deps: deps}
	router.GET("/healthz", h.health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	api := router.Group("/api")
	api.POST("/broadcasts", h.createBroadcast)
	api.POST("/announcements", h.createAnnouncement)
	api.GET("/jobs", h.listJobs)
	api.GET("/jobs/:id", h.getJob)
	api.DELETE("/jobs/:id", h.cancelJob)
	api.GET("/stats", h.stats)

	return router
}

// Server runs the router until its context ends.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Info("http api listening", "addr", s.srv.Addr)
		}
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		if logger == nil {
			return
		}
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(started),
		)
	}
}
