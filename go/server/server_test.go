package server

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"github.com/uneu/ogimage/go/font"
	"github.com/uneu/ogimage/go/health"
	ogihttp "github.com/uneu/ogimage/go/http"
	"github.com/uneu/ogimage/go/imageio"
	"github.com/uneu/ogimage/go/logging"
	"github.com/uneu/ogimage/go/og"
	"github.com/uneu/ogimage/go/store/memory"
)

type lockedBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.String()
}

type harness struct {
	server *httptest.Server
	cache  *memory.Store
	logs   *lockedBuffer
}

func newHarness(t *testing.T, backgroundPath string) *harness {
	t.Helper()
	logs := &lockedBuffer{}
	logger := slog.New(logging.NewContextHandler(logging.NewRawHandler(logs, nil), logging.FieldsFromContext))

	cache := memory.New()
	renderer := og.NewRenderer(cache, imageio.NewFileLoader(backgroundPath), font.MustLoad(), imageio.PNGEncoder{}).WithLogger(logger)

	httpServer := ogihttp.NewServer(&ogihttp.Opts{
		Health: &health.Opts{Interval: time.Hour, Timeout: time.Second},
		Host:   "127.0.0.1",
	})
	require.NoError(t, NewHandler(renderer).WithLogger(logger).Register(httpServer))

	server := httptest.NewServer(httpServer.Handler())
	t.Cleanup(server.Close)
	return &harness{server: server, cache: cache, logs: logs}
}

func writeBackground(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wave-haikei.png")
	require.NoError(t, imaging.Save(imaging.New(1200, 630, color.NRGBA{R: 40, G: 20, B: 90, A: 255}), path))
	return path
}

func (h *harness) get(t *testing.T, rawQuery string) (*http.Response, []byte) {
	t.Helper()
	response, err := http.Get(h.server.URL + Path + rawQuery)
	require.NoError(t, err)
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response, body
}

func TestServesPNG(t *testing.T) {
	h := newHarness(t, writeBackground(t))

	response, body := h.get(t, "?title=Hello")
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, "image/png", response.Header.Get("Content-Type"))
	require.NotEmpty(t, response.Header.Get(RequestIDHeader))

	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 1200, 630), img.Bounds())

	stored, found, err := h.cache.Get(context.Background(), "Hello")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, body, stored)
}

func TestTitleIsDecodedVerbatim(t *testing.T) {
	h := newHarness(t, writeBackground(t))
	title := "Ünïcode & spaces / 日本"

	response, body := h.get(t, "?"+url.Values{TitleParam: {title}}.Encode())
	require.Equal(t, http.StatusOK, response.StatusCode)

	stored, found, err := h.cache.Get(context.Background(), title)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, body, stored)
}

func TestConcurrentFirstRequestsAreIdentical(t *testing.T) {
	h := newHarness(t, writeBackground(t))

	bodies := make([][]byte, 2)
	statuses := make([]int, 2)
	wg := sync.WaitGroup{}
	for i := range bodies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			response, err := http.Get(h.server.URL + Path + "?title=Launch")
			if err != nil {
				return
			}
			defer response.Body.Close()
			statuses[i] = response.StatusCode
			bodies[i], _ = io.ReadAll(response.Body)
		}()
	}
	wg.Wait()

	require.Equal(t, []int{http.StatusOK, http.StatusOK}, statuses)
	require.NotEmpty(t, bodies[0])
	require.Equal(t, bodies[0], bodies[1])

	count, err := h.cache.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestMissingBackgroundIsInternalError(t *testing.T) {
	h := newHarness(t, filepath.Join(t.TempDir(), "missing.png"))

	response, body := h.get(t, "?title=Hello")
	require.Equal(t, http.StatusInternalServerError, response.StatusCode)
	require.Empty(t, body)
	require.NotEqual(t, "image/png", response.Header.Get("Content-Type"))

	count, err := h.cache.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
	require.Contains(t, h.logs.String(), "loading background")
}

func TestEmptyTitle(t *testing.T) {
	h := newHarness(t, writeBackground(t))

	for _, query := range []string{"?title=", "?title"} {
		response, body := h.get(t, query)
		require.Equal(t, http.StatusOK, response.StatusCode, query)
		_, err := png.Decode(bytes.NewReader(body))
		require.NoError(t, err)
	}
	_, found, err := h.cache.Get(context.Background(), "")
	require.NoError(t, err)
	require.True(t, found)
}

func TestBadRequests(t *testing.T) {
	h := newHarness(t, writeBackground(t))
	tests := []struct {
		name  string
		query string
	}{
		{"missing title", ""},
		{"other parameter only", "?name=Hello"},
		{"repeated title", "?title=a&title=b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, _ := h.get(t, tt.query)
			require.Equal(t, http.StatusBadRequest, response.StatusCode)
		})
	}
	count, err := h.cache.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t, writeBackground(t))
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		request, err := http.NewRequest(method, h.server.URL+Path+"?title=Hello", nil)
		require.NoError(t, err)
		response, err := http.DefaultClient.Do(request)
		require.NoError(t, err)
		response.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, response.StatusCode, method)
		require.Equal(t, http.MethodGet, response.Header.Get("Allow"))
	}
}

func TestRequestIDIsLogged(t *testing.T) {
	h := newHarness(t, writeBackground(t))
	response, _ := h.get(t, "?title=Hello")
	requestID := response.Header.Get(RequestIDHeader)
	require.NotEmpty(t, requestID)
	// The access log line is written after the response is flushed.
	require.Eventually(t, func() bool {
		return strings.Contains(h.logs.String(), "served request") &&
			strings.Contains(h.logs.String(), "request_id="+requestID)
	}, time.Second, time.Millisecond)
}

type failingRenderer struct{}

func (failingRenderer) RenderOrFetch(context.Context, string) ([]byte, error) {
	return nil, &og.EncodeError{Err: errors.New("boom")}
}

func TestRenderFailureHasEmptyBody(t *testing.T) {
	recorder := httptest.NewRecorder()
	handler := WithRequestLogging(slog.Default(), NewHandler(failingRenderer{}))
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, Path+"?title=Hello", nil))
	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	require.Zero(t, recorder.Body.Len())
}
