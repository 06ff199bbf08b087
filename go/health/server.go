package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/uneu/ogimage/go/routine"
)

// Opts holds health opts.
type Opts struct {
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Health check interval" default:"10s"`
	Timeout  time.Duration `long:"timeout" env:"TIMEOUT" description:"Health check timeout" default:"5s"`
}

// Server tracks the serving status of named components and exposes it over HTTP.
// Statuses are held in a gRPC health server so they share its semantics: the "" entry is the aggregate.
type Server struct {
	*health.Server
	opts         *Opts
	log          *slog.Logger
	ready        atomic.Bool
	mutex        sync.RWMutex
	nameToCheck  map[string]Check
	checkRoutine *routine.Routine
}

// NewServer creates a new health server. Every status starts NOT_SERVING until the first check completes.
func NewServer(opts *Opts) *Server {
	s := &Server{
		Server:      health.NewServer(),
		opts:        opts,
		log:         slog.Default(),
		nameToCheck: map[string]Check{},
	}
	s.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) WithLogger(logger *slog.Logger) *Server {
	s.log = logger
	return s
}

// Register adds checks for a named component, replacing any previous ones.
func (s *Server) Register(name string, checks ...Check) {
	s.mutex.Lock()
	s.nameToCheck[name] = CombineChecks(checks...)
	s.mutex.Unlock()
	s.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	s.log.Debug("registered health check", "component", name, "checks", len(checks))
}

// Start runs the checks now and then every Interval until Stop.
func (s *Server) Start(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.checkRoutine != nil {
		return
	}
	s.checkRoutine = routine.New("health-check", s.Update, nil).
		WithLogger(s.log).
		WithTicker(s.opts.Interval).
		Start(ctx)
}

// Stop halts periodic checks and marks everything NOT_SERVING.
func (s *Server) Stop() {
	s.ready.Store(false)
	s.mutex.RLock()
	checkRoutine := s.checkRoutine
	s.mutex.RUnlock()
	if checkRoutine != nil {
		checkRoutine.Close()
	}
	s.Shutdown()
}

// MarkReady marks the process as having finished initialization.
func (s *Server) MarkReady() {
	s.ready.Store(true)
	s.log.Info("health server marked as ready")
}

// Update runs every registered check once and records the results. It never fails: a failing
// check only flips its component, and the aggregate, to NOT_SERVING.
func (s *Server) Update(ctx context.Context) error {
	s.mutex.RLock()
	nameToCheck := make(map[string]Check, len(s.nameToCheck))
	for name, check := range s.nameToCheck {
		nameToCheck[name] = check
	}
	s.mutex.RUnlock()

	var mutex sync.Mutex
	aggregate := grpc_health_v1.HealthCheckResponse_SERVING
	wg := sync.WaitGroup{}
	for name, check := range nameToCheck {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := s.runCheck(ctx, name, check)
			s.SetServingStatus(name, status)
			mutex.Lock()
			defer mutex.Unlock()
			if status == grpc_health_v1.HealthCheckResponse_NOT_SERVING {
				aggregate = status
			} else if status == grpc_health_v1.HealthCheckResponse_UNKNOWN && aggregate == grpc_health_v1.HealthCheckResponse_SERVING {
				aggregate = status
			}
		}()
	}
	wg.Wait()
	s.SetServingStatus("", aggregate)
	return nil
}

func (s *Server) runCheck(ctx context.Context, name string, check Check) grpc_health_v1.HealthCheckResponse_ServingStatus {
	checkCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	err := check(checkCtx)
	if err == nil {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	log := s.log.With("component", name, "error", err)
	switch {
	case errors.Is(err, context.Canceled):
		log.DebugContext(ctx, "health check cancelled")
		return grpc_health_v1.HealthCheckResponse_UNKNOWN
	case errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(ctx, "health check timed out")
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	default:
		log.WarnContext(ctx, "health check failed")
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
}

// LivenessHandler answers 200 once the process is ready.
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

// ReadinessHandler answers with the status of every component as JSON; 503 unless the aggregate is SERVING.
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		s.log.DebugContext(r.Context(), "readiness check failed: server not ready")
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	response, err := s.List(r.Context(), &grpc_health_v1.HealthListRequest{})
	if err != nil {
		s.log.DebugContext(r.Context(), "readiness check failed", "error", err)
		http.Error(w, "failed to carry out the readiness check", http.StatusInternalServerError)
		return
	}
	bytes, err := protojson.Marshal(response)
	if err != nil {
		s.log.ErrorContext(r.Context(), "marshaling readiness response", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if status := response.Statuses[""]; status == nil || status.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if _, err := w.Write(bytes); err != nil {
		s.log.ErrorContext(r.Context(), "writing readiness response", "error", err)
	}
}

// CheckFn exposes the aggregate status as a Check.
func (s *Server) CheckFn() Check {
	return func(ctx context.Context) error {
		response, err := s.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
		if err != nil {
			return err
		}
		if response.Status != grpc_health_v1.HealthCheckResponse_SERVING {
			return fmt.Errorf("health check returned %s", response.Status)
		}
		return nil
	}
}
