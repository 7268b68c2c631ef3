// Package server exposes the user store and the parameter-binding routes
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/WolfieLeader/benchmarks/pkg/config"
	"github.com/WolfieLeader/benchmarks/pkg/userstore"
)

// Server wraps the gin engine and the listener.
type Server struct {
	settings *config.Settings
	registry *userstore.Registry
	engine   *gin.Engine
	httpSrv  *http.Server
}

// New builds the router over the given registry. The registry is injected by
// the composition root; the server never constructs drivers itself.
func New(settings *config.Settings, registry *userstore.Registry) *Server {
	if settings.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if settings.Env != "prod" {
		engine.Use(gin.Logger())
	}

	s := &Server{
		settings: settings,
		registry: registry,
		engine:   engine,
		httpSrv: &http.Server{
			Addr:              settings.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	s.engine.GET("/health", s.handleHealth)

	s.registerParamsRoutes(s.engine.Group("/params"))
	s.registerDBRoutes(s.engine.Group("/db"))

	s.engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, errNotFound)
	})
}

// handleHealth probes every backend concurrently and reports each one's
// state. The service itself is up, so the top-level status stays "healthy"
// even when individual backends are not.
func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()

	var mu sync.Mutex
	var wg sync.WaitGroup
	databases := make(map[userstore.Backend]string, len(userstore.Backends))

	for _, backend := range userstore.Backends {
		wg.Add(1)
		go func(backend userstore.Backend) {
			defer wg.Done()
			status := "unhealthy"
			if repo := s.registry.Resolve(string(backend)); repo != nil && repo.HealthCheck(ctx) {
				status = "healthy"
			}
			mu.Lock()
			databases[backend] = status
			mu.Unlock()
		}(backend)
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"databases": databases,
	})
}

// Engine returns the underlying router, mainly for httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start listens until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	slog.Info("http server listening", "addr", s.httpSrv.Addr, "env", s.settings.Env)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
