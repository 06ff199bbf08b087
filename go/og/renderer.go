// Package og renders social preview images and serves them through a title-keyed cache.
//
// On a miss the pipeline runs load background → draw watermark → draw centered title → encode → store.
// On a hit the stored bytes are returned untouched. Renders are deterministic, so concurrent first
// requests for one title may both render and both store without harm.
package og

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"strconv"
	"time"

	"github.com/uneu/ogimage/go/layout"
	"github.com/uneu/ogimage/go/store"
)

const (
	// Watermark is painted on every image, independent of the title.
	Watermark = "uneu.net"
)

var (
	// WatermarkOrigin is the top-left corner of the watermark.
	WatermarkOrigin = image.Pt(10, 5)
	// WatermarkScale is the watermark's pixel scale.
	WatermarkScale = layout.Uniform(50)
	// TitleScale is the title's pixel scale.
	TitleScale = layout.Uniform(80)
	// TextColor is used for both the watermark and the title.
	TextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// BackgroundLoader returns a fresh canvas to draw on.
type BackgroundLoader interface {
	Load(ctx context.Context) (draw.Image, error)
}

// Typesetter measures and draws text. pos is the top-left corner of the line box.
type Typesetter interface {
	layout.Metrics
	DrawText(dst draw.Image, text string, pos image.Point, scale layout.Scale, c color.Color) error
}

// Encoder serializes a canvas to PNG.
type Encoder interface {
	EncodePNG(img image.Image) ([]byte, error)
}

// Renderer composites titles onto the background and caches the results.
type Renderer struct {
	log        *slog.Logger
	store      store.Store
	background BackgroundLoader
	typesetter Typesetter
	encoder    Encoder
	metrics    *rendererMetrics
}

// NewRenderer returns a Renderer wired to its collaborators.
func NewRenderer(cache store.Store, background BackgroundLoader, typesetter Typesetter, encoder Encoder) *Renderer {
	return &Renderer{
		log:        slog.Default(),
		store:      cache,
		background: background,
		typesetter: typesetter,
		encoder:    encoder,
		metrics:    getMetrics(),
	}
}

func (r *Renderer) WithLogger(logger *slog.Logger) *Renderer {
	r.log = logger
	return r
}

// RenderOrFetch returns the PNG for title, rendering and storing it on a cache miss.
// A failed store write is logged and the freshly rendered bytes are still returned.
func (r *Renderer) RenderOrFetch(ctx context.Context, title string) ([]byte, error) {
	log := r.log.With("title", title)

	cached, found, err := r.store.Get(ctx, title)
	switch {
	case err != nil:
		r.metrics.cacheLookupsTotal.WithLabelValues(lookupError).Inc()
		log.WarnContext(ctx, "cache lookup failed, rendering", "error", err)
	case found:
		r.metrics.cacheLookupsTotal.WithLabelValues(lookupHit).Inc()
		log.DebugContext(ctx, "cache hit", "bytes", len(cached))
		return cached, nil
	default:
		r.metrics.cacheLookupsTotal.WithLabelValues(lookupMiss).Inc()
	}

	start := time.Now()
	rendered, err := r.Render(ctx, title)
	r.metrics.renderDurationSeconds.WithLabelValues(strconv.FormatBool(err == nil)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	log.DebugContext(ctx, "rendered", "bytes", len(rendered), "duration", time.Since(start))

	if err := r.store.Put(ctx, title, rendered); err != nil {
		writeErr := &CacheWriteError{Key: title, Err: err}
		r.metrics.cacheWriteErrorsTotal.Inc()
		log.ErrorContext(ctx, "caching rendered image", "error", writeErr)
	}
	return rendered, nil
}

// Render composites title onto a freshly loaded background and encodes it, bypassing the cache.
func (r *Renderer) Render(ctx context.Context, title string) ([]byte, error) {
	canvas, err := r.background.Load(ctx)
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	if err := r.typesetter.DrawText(canvas, Watermark, WatermarkOrigin, WatermarkScale, TextColor); err != nil {
		return nil, &DrawError{Text: Watermark, Err: err}
	}

	width := layout.MeasureWidth(title, r.typesetter, TitleScale)
	origin := layout.Center(canvas.Bounds(), width, TitleScale)
	if err := r.typesetter.DrawText(canvas, title, origin, TitleScale, TextColor); err != nil {
		return nil, &DrawError{Text: title, Err: err}
	}

	encoded, err := r.encoder.EncodePNG(canvas)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return encoded, nil
}
