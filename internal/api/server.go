// Package api exposes the benchmark engine over HTTP: model lifecycle,
// suite discovery, and run submission/inspection, plus the ambient
// health/readiness/metrics surface.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"runtime/debug"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/llm-bench/engine/internal/coordinator"
	"github.com/llm-bench/engine/internal/metrics"
	"github.com/llm-bench/engine/internal/orchestrator"
	"github.com/llm-bench/engine/internal/storage"
	"github.com/llm-bench/engine/internal/suite"
)

// Server is the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger

	repo     *storage.DB
	orch     *orchestrator.Orchestrator
	coord    *coordinator.Coordinator
	registry *coordinator.StatusRegistry
	catalog  *suite.Catalog

	host string
	port int

	ready atomic.Bool
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithHost sets the server host.
func WithHost(host string) Option {
	return func(s *Server) { s.host = host }
}

// WithPort sets the server port.
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// New creates a new API server wired to its collaborators.
func New(repo *storage.DB, orch *orchestrator.Orchestrator, coord *coordinator.Coordinator, registry *coordinator.StatusRegistry, catalog *suite.Catalog, opts ...Option) *Server {
	s := &Server{
		logger:   slog.Default(),
		repo:     repo,
		orch:     orch,
		coord:    coord,
		registry: registry,
		catalog:  catalog,
		host:     "0.0.0.0",
		port:     8080,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRouter()
	return s
}

// SetReady sets the server readiness state.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	s.logger.Info("server readiness changed", slog.Bool("ready", ready))
}

// IsReady returns whether the server is ready to accept traffic.
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

// setupRouter configures the Gin router.
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(s.requestIDMiddleware())
	router.Use(s.metricsMiddleware())
	router.Use(s.bodySizeLimitMiddleware(1 << 20)) // 1MB limit
	router.Use(s.loggingMiddleware())
	router.Use(s.recoveryMiddleware())

	router.GET("/healthz", s.handleHealthz)
	router.GET("/ready", s.handleReady)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/models", s.handleRegisterModel)
		api.DELETE("/models/:id", s.handleDeleteModel)
		api.POST("/models/:id/load", s.handleLoadModel)
		api.POST("/models/:id/unload", s.handleUnloadModel)
		api.GET("/models/:id/health", s.handleModelHealth)
		api.GET("/models/available", s.handleListAvailable)

		api.GET("/suites", s.handleListSuites)

		api.POST("/runs", s.handleStartRun)
		api.GET("/runs/:id/status", s.handleGetRunStatus)
		api.GET("/runs/:id/export", s.handleExportRun)
		api.GET("/runs/:id", s.handleGetRun)
		api.GET("/runs", s.handleListRuns)

		api.GET("/results", s.handleListResults)
	}

	s.router = router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	s.logger.Info("starting API server", slog.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the Gin router, for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Middleware

var validRequestIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

func isValidRequestID(id string) bool {
	return id != "" && validRequestIDRegex.MatchString(id)
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if !isValidRequestID(requestID) {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		metrics.RecordHTTPRequest(method, path, status, duration)
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.String("request_id", c.GetString("request_id")),
			slog.String("client_ip", c.ClientIP()))
	}
}

func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := string(debug.Stack())
				s.logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("stack", stack),
					slog.String("request_id", c.GetString("request_id")))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:     "internal server error",
					RequestID: c.GetString("request_id"),
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

func (s *Server) bodySizeLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
