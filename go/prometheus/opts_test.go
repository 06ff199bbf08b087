package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/require"
)

func TestEnabled(t *testing.T) {
	var nilOpts *Opts
	require.False(t, nilOpts.Enabled())
	require.False(t, (&Opts{Disable: true}).Enabled())
	require.True(t, (&Opts{}).Enabled())
}

func TestHandlerServesDefaultRegistry(t *testing.T) {
	promauto.NewCounter(prometheus.CounterOpts{Name: "ogimage_test_handler_total", Help: "test"}).Add(3)
	require.NoError(t, RegisterBuildInfo())
	require.NoError(t, RegisterBuildInfo())

	s := NewServer(&Opts{Port: 0, Path: "/metrics"})
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "ogimage_test_handler_total 3")
	require.Contains(t, string(body), "go_build_info")
}

func TestDisabledServerIsNoop(t *testing.T) {
	s := NewServer(&Opts{Disable: true, Port: 0, Path: "/metrics"})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
