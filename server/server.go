package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/voixagent/voixagent/component"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/server/middleware"
)

var (
	_ component.Component     = (*Server)(nil)
	_ component.Describable   = (*Server)(nil)
	_ component.RouteProvider = (*Server)(nil)
)

// Server is the HTTP front end and a lifecycle component. Routes live on a
// gin engine; the net/http middleware chain wraps the engine and the result
// is served over HTTP/1.1 and h2c on one port.
type Server struct {
	cfg    Config
	log    *logger.Logger
	engine *gin.Engine
	http   *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server. Gin runs in debug mode only when the global log
// level is debug or lower.
func New(cfg Config, log *logger.Logger) *Server {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	mode := gin.ReleaseMode
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	s := &Server{cfg: cfg, log: log.WithComponent("server"), engine: gin.New()}
	chain := middleware.Chain(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.CORS(&s.cfg.CORS),
		middleware.BodySizeLimit(s.cfg.MaxBodySize),
		middleware.RequestLogger(s.log),
	)
	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           h2c.NewHandler(chain(s.engine), &http2.Server{MaxConcurrentStreams: 250, IdleTimeout: cfg.IdleTimeout}),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

// Engine returns the gin engine for route registration.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler returns the handler exactly as served, middleware included.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Addr is the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.http.Addr
}

func (s *Server) Name() string { return "http-server" }

// Start binds the port and serves in the background. A bind failure is
// returned; later serve errors are logged.
func (s *Server) Start(context.Context) error {
	l, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.http.Addr, err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	go func() {
		if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve failed", logger.ErrorFields("serve", err))
		}
	}()
	s.log.Info("HTTP server started", logger.Fields("addr", l.Addr().String()))
	return nil
}

// Stop drains in-flight requests for at most ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}

func (s *Server) Health(context.Context) component.Health {
	s.mu.Lock()
	bound := s.listener != nil
	s.mu.Unlock()
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	if !bound {
		h.Status, h.Message = component.StatusUnhealthy, "not listening"
	}
	return h
}

func (s *Server) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: s.http.Addr + " (h2c)",
		Port:    s.cfg.Port,
	}
}
