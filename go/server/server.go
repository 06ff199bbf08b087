// Package server exposes the og pipeline over HTTP as GET /image?title=<title>.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
)

const (
	// Path is where images are served.
	Path = "/image"
	// TitleParam is the query parameter holding the title.
	TitleParam = "title"
	// RequestIDHeader carries the request id back to the caller.
	RequestIDHeader = "X-Request-Id"
)

// Renderer produces the PNG for a title.
type Renderer interface {
	RenderOrFetch(ctx context.Context, title string) ([]byte, error)
}

// Route is the subset of the HTTP server used to mount the endpoint.
type Route interface {
	RegisterRoute(pattern string, handler http.Handler) error
}

// Handler serves images. Use Register to mount it with request logging.
type Handler struct {
	log      *slog.Logger
	renderer Renderer
}

// NewHandler returns a Handler rendering through renderer.
func NewHandler(renderer Renderer) *Handler {
	return &Handler{
		log:      slog.Default(),
		renderer: renderer,
	}
}

func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.log = logger
	return h
}

// Register mounts the handler on Path behind the request middleware.
func (h *Handler) Register(route Route) error {
	return route.RegisterRoute(Path, WithRequestLogging(h.log, h))
}

// ServeHTTP answers 405 for anything but GET, 400 when the title parameter is absent or repeated,
// 500 with an empty body when rendering fails, and otherwise the PNG.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	titles, ok := r.URL.Query()[TitleParam]
	switch {
	case !ok:
		http.Error(w, "missing query parameter: title", http.StatusBadRequest)
		return
	case len(titles) > 1:
		http.Error(w, "duplicate query parameter: title", http.StatusBadRequest)
		return
	}
	title := titles[0]

	encoded, err := h.renderer.RenderOrFetch(r.Context(), title)
	if err != nil {
		h.log.ErrorContext(r.Context(), "rendering image", "title", title, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(encoded)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(encoded); err != nil {
		h.log.WarnContext(r.Context(), "writing image", "title", title, "error", err)
	}
}
