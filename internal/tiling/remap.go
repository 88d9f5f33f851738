package tiling

import (
	"go.uber.org/zap"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// Remap translates tile-local detections into original-image coordinates by
// adding the tile offset. Width, height, and angle are preserved verbatim;
// for rotated boxes the translation moves the box center, since rotation is
// defined relative to the box itself, not the tile.
//
// A detection whose translated axis-aligned extent lies entirely outside the
// image can only come from a predictor bug, because crops are bounds-safe.
// Such detections are dropped and logged at warning level, never treated as
// an error.
func Remap(dets []annotation.Detection, tile Tile, img annotation.Image, log *zap.Logger) []annotation.Detection {
	if log == nil {
		log = zap.NewNop()
	}

	out := make([]annotation.Detection, 0, len(dets))
	for _, d := range dets {
		d.Box = d.Box.Translate(float64(tile.X0), float64(tile.Y0))
		d.Tile = tile.Index
		if outsideImage(d.Box, img) {
			log.Warn("dropping detection outside image bounds",
				zap.Int("tile", tile.Index),
				zap.String("category", d.Category),
				zap.String("box", d.Box.String()),
				zap.Int("image_width", img.Width),
				zap.Int("image_height", img.Height),
			)
			continue
		}
		out = append(out, d)
	}
	return out
}

// outsideImage reports whether the box's axis-aligned extent has no overlap
// at all with the image rectangle.
func outsideImage(b annotation.Box, img annotation.Image) bool {
	return b.X >= float64(img.Width) ||
		b.Y >= float64(img.Height) ||
		b.X+b.Width <= 0 ||
		b.Y+b.Height <= 0
}
