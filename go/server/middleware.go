package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/uneu/ogimage/go/logging"
	"github.com/uneu/ogimage/go/uuid"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// WithRequestLogging tags each request with an id, echoed in X-Request-Id and attached to every
// record logged with the request context, then logs and counts the response.
func WithRequestLogging(logger *slog.Logger, next http.Handler) http.Handler {
	metrics := getMetrics()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewRequestID()
		w.Header().Set(RequestIDHeader, requestID)
		ctx := logging.ContextWithFields(r.Context(), "request_id", requestID)

		metrics.inFlight.Inc()
		defer metrics.inFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r.WithContext(ctx))
		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}

		duration := time.Since(start)
		code := strconv.Itoa(recorder.status)
		metrics.requestsTotal.WithLabelValues(code).Inc()
		metrics.requestDurationSeconds.WithLabelValues(code).Observe(duration.Seconds())

		level := slog.LevelInfo
		if recorder.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "served request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"bytes", recorder.bytes,
			"duration", duration,
		)
	})
}
