package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/server/endpoint"
	"github.com/kbukum/voxkit/server/middleware"
)

// Server is the voxkit HTTP server. Gin serves every route and an h2c
// wrapper lets HTTP/2 clients connect without TLS.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	h2s        *http2.Server
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	running  bool
}

// New creates a Server. No middleware or routes are installed yet.
func New(cfg Config, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	mux := http.NewServeMux()
	mux.Handle("/", engine)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          cfg.IdleTimeout,
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           h2c.NewHandler(mux, h2s),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		engine: engine,
		mux:    mux,
		h2s:    h2s,
		config: cfg,
		log:    log.WithComponent("server"),
	}
}

// GinEngine returns the Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the root handler, h2c wrapper included. Tests drive it
// with httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Config returns the effective configuration.
func (s *Server) Config() Config {
	return s.config
}

// Handle mounts an http.Handler next to Gin on the root mux.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
	s.log.Debug("handler mounted", logger.Fields("pattern", pattern))
}

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener
	s.running = true

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.running = false
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}

// Running reports whether the server is serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// ApplyMiddleware wraps the root mux in the standard stack: recovery,
// request ID, CORS, upload size limit and request logging. It also routes
// unknown paths and methods to the error envelope.
func (s *Server) ApplyMiddleware() {
	chain := middleware.Chain(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(s.config.CORS),
		middleware.BodySizeLimit(s.config.MaxBodySize),
		middleware.RequestLogger(s.log),
	)
	s.httpServer.Handler = h2c.NewHandler(chain(s.mux), s.h2s)
	s.engine.NoRoute(func(c *gin.Context) { RespondWithError(c, errNoRoute(c.Request.URL.Path)) })
	s.engine.NoMethod(func(c *gin.Context) { RespondWithError(c, errNoMethod(c.Request.Method)) })
}

// APIGroup returns a route group under prefix with per-client rate
// limiting applied. Probes and /metrics stay outside it.
func (s *Server) APIGroup(prefix string) *gin.RouterGroup {
	g := s.engine.Group(prefix)
	if s.config.RateLimit.RequestsPerSecond > 0 {
		g.Use(middleware.GinWrap(middleware.RateLimit(s.config.RateLimit)))
	}
	return g
}

// RegisterDefaultEndpoints registers /health, /livez, /readyz, /version
// and, when gatherer is not nil, /metrics.
func (s *Server) RegisterDefaultEndpoints(service string, checker endpoint.HealthChecker, gatherer prometheus.Gatherer) {
	s.engine.GET("/health", endpoint.Health(service, checker))
	s.engine.GET("/livez", endpoint.Liveness(service))
	s.engine.GET("/readyz", endpoint.Readiness(checker))
	s.engine.GET("/version", endpoint.Version())
	if gatherer != nil {
		s.engine.GET("/metrics", endpoint.Metrics(gatherer))
	}
}
