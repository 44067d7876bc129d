// Package server exposes the HTTP API: tool catalog, scope management,
// run launching, smart-scan sessions, and live status streaming over SSE
// with a polling fallback on the snapshot endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hamza/scanhub/internal/orchestrator"
	"github.com/hamza/scanhub/internal/registry"
	"github.com/hamza/scanhub/internal/runs"
	"github.com/hamza/scanhub/internal/storage"
	"github.com/hamza/scanhub/internal/stream"
)

// Server wires the API handlers over the application services.
type Server struct {
	store  *storage.Store
	reg    *registry.Registry
	runs   *runs.Service
	orch   *orchestrator.Orchestrator
	hub    *stream.Hub
	log    *logrus.Entry
	engine *gin.Engine
}

// New builds the router. Gin runs in release mode; the access log goes
// through the application logger instead of gin's default writer.
func New(store *storage.Store, reg *registry.Registry, runSvc *runs.Service, orch *orchestrator.Orchestrator, hub *stream.Hub, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		store:  store,
		reg:    reg,
		runs:   runSvc,
		orch:   orch,
		hub:    hub,
		log:    log,
		engine: engine,
	}

	engine.Use(gin.Recovery(), s.accessLog())
	s.registerRoutes()
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		respondMessage(c, http.StatusOK, "ok")
	})

	api := s.engine.Group("/api")

	api.GET("/tools", s.listTools)
	api.POST("/tools", s.registerTool)
	api.GET("/tools/:name", s.getTool)

	api.GET("/scopes", s.listScopes)
	api.POST("/scopes", s.createScope)
	api.POST("/scopes/check", s.checkScope)

	api.POST("/runs", s.launchRun)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.GET("/runs/:id/events", s.runEvents)
	api.POST("/runs/:id/cancel", s.cancelRun)
	api.DELETE("/runs/:id", s.deleteRun)

	api.POST("/scans", s.createScan)
	api.GET("/scans", s.listScans)
	api.GET("/scans/:id", s.getScan)
	api.GET("/scans/:id/events", s.scanEvents)
	api.POST("/scans/:id/start", s.startScan)
	api.POST("/scans/:id/cancel", s.cancelScan)
	api.DELETE("/scans/:id", s.deleteScan)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).Round(time.Millisecond).String(),
		}).Debug("http request")
	}
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.WithField("addr", addr).Info("http server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
