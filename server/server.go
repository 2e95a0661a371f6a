package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/server/endpoint"
	"github.com/kbukum/jobflow/server/middleware"
)

// Server is a gin engine served over HTTP/1.1 and h2c.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger
	addr       string
}

// New builds the server; routes are added through Engine or API.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          time.Duration(cfg.IdleTimeout) * time.Second,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      h2c.NewHandler(engine, h2s),
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
		},
		engine: engine,
		config: cfg,
		log:    log.WithComponent("server"),
		addr:   addr,
	}
}

// Engine returns the gin engine for route registration.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler returns the root handler, including h2c.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// API returns the /api/v1 group, behind bearer auth when enabled.
func (s *Server) API() *gin.RouterGroup {
	group := s.engine.Group("/api/v1")
	if s.config.Auth.Enabled {
		group.Use(middleware.Auth(middleware.HMACValidator(s.config.Auth)))
	}
	return group
}

// ApplyMiddleware installs recovery, request id, CORS, the body size limit
// and request logging, in that order.
func (s *Server) ApplyMiddleware() {
	s.engine.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.GinWrap(middleware.CORS(&s.config.CORS)),
		middleware.GinWrap(middleware.BodySizeLimit(s.config.MaxBodySize)),
		middleware.RequestLogger(s.log),
	)
}

// RegisterDefaultEndpoints adds /health, /livez, /readyz and /version.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/livez", endpoint.Liveness())
	s.engine.GET("/readyz", endpoint.Readiness(checker))
	s.engine.GET("/version", endpoint.Version(serviceName))
}

// Start binds the port and serves in the background.
func (s *Server) Start(_ context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.addr = listener.Addr().String()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", s.addr))
	return nil
}

// Stop drains in-flight requests for at most five seconds.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}

// Addr is the bound address after Start, the configured one before.
func (s *Server) Addr() string { return s.addr }
