// Package layout measures single-line text and positions it on a canvas.
package layout

import "image"

// Scale is a horizontal/vertical pixel scale pair.
type Scale struct {
	X float64
	Y float64
}

// Uniform returns a scale with the same value on both axes.
func Uniform(size float64) Scale {
	return Scale{X: size, Y: size}
}

// Rect is a glyph bounding rectangle in pixels.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Metrics resolves glyph bounds. A rune the font has no glyph for must yield a zero Rect.
type Metrics interface {
	GlyphBounds(r rune, scale Scale) Rect
}

// MeasureWidth sums the glyph widths of each rune of text, in order.
// Kerning, combining marks and bidirectional runs are not taken into account.
func MeasureWidth(text string, metrics Metrics, scale Scale) float64 {
	var width float64
	for _, r := range text {
		width += metrics.GlyphBounds(r, scale).Width()
	}
	return width
}

// Center returns the top-left origin that horizontally centers a run of the given width inside bounds.
// The width is truncated to whole pixels. The result is not clamped: text wider than bounds yields a negative x.
// The vertical origin only depends on the canvas height and the scale.
func Center(bounds image.Rectangle, width float64, scale Scale) image.Point {
	w := int(width)
	return image.Point{
		X: (bounds.Dx() - w) / 2,
		Y: (bounds.Dy() - int(scale.Y)) / 2,
	}
}
