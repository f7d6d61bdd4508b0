// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hoodskool/hoodskool-backend/internal/config"
	"github.com/hoodskool/hoodskool-backend/internal/interfaces/http/middleware"
	"github.com/hoodskool/hoodskool-backend/internal/interfaces/http/routes"
)

const healthCheckTimeout = 3 * time.Second

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	logger      logrus.FieldLogger
	gin         *gin.Engine
	httpServer  *http.Server
	redisClient *redis.Client
	deps        routes.Dependencies
	checks      map[string]HealthChecker
	startedAt   time.Time
}

// NewServer creates a new HTTP server instance. redisClient may be nil,
// which disables rate limiting.
func NewServer(cfg *config.Config, logger logrus.FieldLogger, redisClient *redis.Client, deps routes.Dependencies, checks map[string]HealthChecker) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:      cfg,
		logger:      logger,
		redisClient: redisClient,
		deps:        deps,
		checks:      checks,
		startedAt:   time.Now(),
	}

	s.gin = gin.New()
	if err := s.gin.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		logger.WithError(err).Warn("Invalid trusted proxies, trusting none")
		_ = s.gin.SetTrustedProxies(nil)
	}
	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.WithFields(logrus.Fields{
		"port":         s.config.Server.Port,
		"environment":  s.config.App.Environment,
		"cart_backend": s.config.Cart.Backend,
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server stopped gracefully")
	return nil
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.logger))
	s.gin.Use(middleware.CORS(s.config.Security))
	s.gin.Use(middleware.SecurityHeaders(s.config.IsProduction()))

	if s.redisClient != nil {
		s.gin.Use(middleware.RateLimit(s.config.Security.RateLimitPerMinute, s.redisClient, s.logger))
	}

	s.gin.Use(middleware.RequestSizeLimit(s.config.Server.MaxBodyBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout))
}

// setupRoutes configures all routes for the server
func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)
	s.gin.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, s.deps)
}

// healthCheck pings every registered dependency
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := gin.H{}
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			results[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": results,
		"timestamp":    time.Now().UTC(),
		"version":      s.config.App.Version,
		"environment":  s.config.App.Environment,
	})
}

// readinessCheck handles readiness check requests
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
