// Package imageio loads background templates and encodes rendered canvases.
package imageio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"

	"github.com/disintegration/imaging"
)

// FileLoader decodes a background image from a fixed path on every call.
type FileLoader struct {
	path string
}

// NewFileLoader returns a loader for the image at path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Path returns the file this loader reads.
func (l *FileLoader) Path() string { return l.path }

// Load decodes the background into a fresh, mutable canvas owned by the caller.
func (l *FileLoader) Load(_ context.Context) (draw.Image, error) {
	img, err := imaging.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", l.path, err)
	}
	return imaging.Clone(img), nil
}

// Check reports whether the background file is present. Used as a readiness check.
func (l *FileLoader) Check(_ context.Context) error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("stating background: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("background %s is a directory", l.path)
	}
	return nil
}

// PNGEncoder serializes canvases as PNG.
type PNGEncoder struct{}

// EncodePNG returns the PNG encoding of img.
func (PNGEncoder) EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
