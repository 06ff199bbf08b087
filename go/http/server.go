package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/uneu/ogimage/go/health"
)

// Opts holds HTTP server options.
type Opts struct {
	Health              *health.Opts  `group:"Health" namespace:"health" env-namespace:"HEALTH"`
	Host                string        `long:"host" env:"HOST" description:"Address to bind" default:"0.0.0.0"`
	Port                int           `long:"port" env:"PORT" description:"Port to serve HTTP on" default:"3000"`
	ReadTimeout         time.Duration `long:"read-timeout" env:"READ_TIMEOUT" description:"HTTP read timeout" default:"30s"`
	WriteTimeout        time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" description:"HTTP write timeout" default:"30s"`
	IdleTimeout         time.Duration `long:"idle-timeout" env:"IDLE_TIMEOUT"  description:"HTTP idle timeout" default:"120s"`
	GracefulStopTimeout time.Duration `long:"graceful-stop-timeout" env:"GRACEFUL_STOP_TIMEOUT" description:"How long to wait for in-flight requests on stop" default:"30s"`
}

// Address returns the host:port the server binds.
func (o *Opts) Address() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Server holds the HTTP server state. /liveness and /readiness are always mounted.
type Server struct {
	opts         *Opts
	log          *slog.Logger
	httpServer   *http.Server
	mux          *http.ServeMux
	healthServer *health.Server
	patternSet   map[string]struct{}
}

// NewServer creates a new HTTP server.
func NewServer(opts *Opts) *Server {
	s := &Server{
		opts:         opts,
		log:          slog.Default(),
		mux:          http.NewServeMux(),
		healthServer: health.NewServer(opts.Health),
		patternSet:   map[string]struct{}{},
	}
	s.httpServer = &http.Server{
		Addr:         opts.Address(),
		Handler:      s.mux,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	s.mux.HandleFunc("GET /liveness", s.healthServer.LivenessHandler)
	s.mux.HandleFunc("GET /readiness", s.healthServer.ReadinessHandler)
	return s
}

func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.log = logger
	s.healthServer.WithLogger(logger)
	return s
}

// RegisterRoute mounts handler on pattern. Registering the same pattern twice is an error.
func (s *Server) RegisterRoute(pattern string, handler http.Handler) error {
	if _, ok := s.patternSet[pattern]; ok {
		return fmt.Errorf("duplicate pattern registered [%s]", pattern)
	}
	s.patternSet[pattern] = struct{}{}
	s.mux.Handle(pattern, handler)
	return nil
}

// Health returns the health server backing /liveness and /readiness.
func (s *Server) Health() *health.Server {
	return s.healthServer
}

// Handler returns the routing handler, for use without a listener.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve starts the health checks and serves HTTP until Stop or GracefulStop.
func (s *Server) Serve(ctx context.Context) error {
	s.healthServer.Start(ctx)

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	s.healthServer.MarkReady()

	s.log.InfoContext(ctx, "starting HTTP server", "address", listener.Addr().String())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server exited unexpectedly: %w", err)
	}
	return nil
}

// GracefulStop waits up to GracefulStopTimeout for in-flight requests, then closes remaining connections.
func (s *Server) GracefulStop() error {
	s.healthServer.Stop()
	s.log.Info("gracefully stopping HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.GracefulStopTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		s.log.Warn("graceful shutdown timed out")
		return s.httpServer.Close()
	}
	return err
}
