// Package render draws merged detections back onto the source image for
// visual inspection of a prediction run.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// lineWidth is the box outline thickness in pixels.
const lineWidth = 3

// Overlay returns a copy of the image with every detection's bounding box
// outlined. Each category gets its own color, assigned deterministically by
// the category's position in the set's vocabulary. Rotated boxes are drawn
// as their axis-aligned rectangles.
func Overlay(img image.Image, set *annotation.Set) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)

	colors := Palette(len(set.Categories))
	for _, d := range set.Detections {
		idx := set.CategoryID(d.Category) - 1
		if idx < 0 || idx >= len(colors) {
			continue
		}
		rect := image.Rect(
			int(d.Box.X),
			int(d.Box.Y),
			int(d.Box.X+d.Box.Width),
			int(d.Box.Y+d.Box.Height),
		).Intersect(out.Bounds())
		drawRect(out, rect, colors[idx])
	}
	return out
}

// Palette returns n visually distinct colors. The palette is deterministic:
// the same n always yields the same colors, so category colors are stable
// across runs.
func Palette(n int) []color.RGBA {
	colors := make([]color.RGBA, n)
	for i := range colors {
		hue := float64(i) * 360 / float64(max(n, 1))
		r, g, b := colorful.Hsv(hue, 0.85, 0.95).RGB255()
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// Save writes a rendered overlay to disk, choosing the encoder from the
// file extension (PNG by default, JPEG for .jpg/.jpeg).
func Save(path string, img image.Image) error {
	encoder := imgio.PNGEncoder()
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		encoder = imgio.JPEGEncoder(90)
	}
	if err := imgio.Save(path, img, encoder); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	return nil
}

// drawRect outlines a rectangle with a fixed line width, clamped to the
// image bounds.
func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	if r.Empty() {
		return
	}
	for t := 0; t < lineWidth; t++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			setIfInside(img, x, r.Min.Y+t, c)
			setIfInside(img, x, r.Max.Y-1-t, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			setIfInside(img, r.Min.X+t, y, c)
			setIfInside(img, r.Max.X-1-t, y, c)
		}
	}
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}
