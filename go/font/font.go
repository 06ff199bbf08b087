// Package font loads the embedded TrueType font and draws text with it.
//
// Scales are pixel heights: a scale of 80 makes the font's ascent minus descent span 80 pixels,
// which is smaller than an 80 point em box for fonts with a line height above one em.
//
// A *Font is immutable after Load and is safe for concurrent use: glyph metrics are read straight
// from the parsed font, and every DrawText call rasterizes through its own freetype.Context.
package font

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/uneu/ogimage/go/layout"
)

const dpi = 72

// Font wraps a parsed TrueType font.
type Font struct {
	ttf        *truetype.Font
	unitsPerEm float64
	// In font units, both positive.
	ascent  float64
	descent float64
}

// Load parses the font bundled into the binary.
func Load() (*Font, error) {
	return Parse(goregular.TTF)
}

// MustLoad parses the bundled font or panics.
func MustLoad() *Font {
	f, err := Load()
	if err != nil {
		panic(err)
	}
	return f
}

// Parse parses TrueType font bytes.
func Parse(ttfBytes []byte) (*Font, error) {
	ttf, err := truetype.Parse(ttfBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	unitsPerEm := float64(ttf.FUnitsPerEm())
	// At a point size of unitsPerEm the face metrics are in font units.
	face := truetype.NewFace(ttf, &truetype.Options{Size: unitsPerEm, DPI: dpi})
	metrics := face.Metrics()
	face.Close()
	f := &Font{
		ttf:        ttf,
		unitsPerEm: unitsPerEm,
		ascent:     fromFixed(metrics.Ascent),
		descent:    fromFixed(metrics.Descent),
	}
	if f.ascent+f.descent <= 0 {
		return nil, fmt.Errorf("font has no vertical extent")
	}
	return f, nil
}

// pointSize converts a pixel height scale to the 72 DPI point size freetype expects.
func (f *Font) pointSize(px float64) float64 {
	return px * f.unitsPerEm / (f.ascent + f.descent)
}

// HasGlyph reports whether the font maps r to a real glyph.
func (f *Font) HasGlyph(r rune) bool {
	return f.ttf.Index(r) != 0
}

// GlyphBounds implements layout.Metrics. Relative to the pen position on the baseline, the rectangle
// runs from minus the left side bearing to the advance horizontally, and over the font's
// ascent/descent vertically. Runes without a glyph map to the zero rectangle.
func (f *Font) GlyphBounds(r rune, scale layout.Scale) layout.Rect {
	index := f.ttf.Index(r)
	if index == 0 {
		return layout.Rect{}
	}
	hMetric := f.ttf.HMetric(toFixed(f.pointSize(scale.X)), index)
	yScale := scale.Y / (f.ascent + f.descent)
	return layout.Rect{
		MinX: -fromFixed(hMetric.LeftSideBearing),
		MinY: -f.ascent * yScale,
		MaxX: fromFixed(hMetric.AdvanceWidth),
		MaxY: f.descent * yScale,
	}
}

// DrawText draws text onto dst with pos as the top-left corner of the line box.
func (f *Font) DrawText(dst draw.Image, text string, pos image.Point, scale layout.Scale, c color.Color) error {
	ascent := int(math.Ceil(scale.Y * f.ascent / (f.ascent + f.descent)))

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(f.ttf)
	ctx.SetFontSize(f.pointSize(scale.Y))
	ctx.SetClip(dst.Bounds())
	ctx.SetDst(dst)
	ctx.SetSrc(image.NewUniform(c))
	ctx.SetHinting(xfont.HintingFull)

	if _, err := ctx.DrawString(text, freetype.Pt(pos.X, pos.Y+ascent)); err != nil {
		return fmt.Errorf("drawing string: %w", err)
	}
	return nil
}

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }

func fromFixed(v fixed.Int26_6) float64 { return float64(v) / 64 }
