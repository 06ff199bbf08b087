package prometheus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Opts holds prometheus opts.
type Opts struct {
	Disable bool   `long:"disable" env:"DISABLE" description:"Set to true to disable prometheus metrics"`
	Port    int    `long:"port" env:"PORT" description:"Port to serve Prometheus metrics on" default:"13434"`
	Path    string `long:"path" env:"PATH" description:"Path metrics are served on" default:"/metrics"`
}

func (o *Opts) Enabled() bool {
	return o != nil && !o.Disable
}

// Server exposes a registry's metrics over HTTP, on a port separate from application traffic.
type Server struct {
	opts     *Opts
	log      *slog.Logger
	gatherer prometheus.Gatherer
	server   *http.Server
}

// NewServer serves the default registry, which promauto metrics register with.
func NewServer(opts *Opts) *Server {
	s := &Server{
		opts:     opts,
		log:      slog.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: s.Handler(),
	}
	return s
}

func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.log = logger
	return s
}

// Handler returns the mux serving metrics on the configured path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.opts.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	return mux
}

// Start serves metrics until Stop. It returns immediately when disabled.
func (s *Server) Start(ctx context.Context) error {
	if !s.opts.Enabled() {
		return nil
	}
	s.log.InfoContext(ctx, "serving Prometheus metrics", "port", s.opts.Port, "endpoint", s.opts.Path)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving prometheus metrics: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.opts.Enabled() {
		return nil
	}
	s.log.Info("stopping Prometheus server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down prometheus server: %w", err)
	}
	return nil
}

// RegisterBuildInfo exposes the module's build information as go_build_info.
func RegisterBuildInfo() error {
	if err := prometheus.Register(collectors.NewBuildInfoCollector()); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			return nil
		}
		return fmt.Errorf("registering build info collector: %w", err)
	}
	return nil
}
