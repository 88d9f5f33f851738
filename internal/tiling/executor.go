package tiling

import (
	"context"
	"fmt"
	"image"

	"github.com/cvninja/cv-ninja/internal/annotation"
	"github.com/cvninja/cv-ninja/internal/imaging"
)

// PredictFunc is the injected prediction capability: it receives the encoded
// crop of a single tile plus the tile's placement and returns detections in
// tile-local coordinates. Implementations live outside this package (see
// internal/predictor for the HTTP-backed ones); any error they return is
// treated as "this tile failed" without interpreting its cause.
//
// Retry policy, rate limiting, and connection pooling belong to the
// implementation, not the tiler.
type PredictFunc func(ctx context.Context, region []byte, tile Tile) ([]annotation.Detection, error)

// executeTile crops the exact pixel rectangle described by the tile, encodes
// it, and delegates to the predictor. The source image is never mutated.
func executeTile(ctx context.Context, img image.Image, tile Tile, predict PredictFunc) ([]annotation.Detection, error) {
	region, err := imaging.CropRegion(img, tile.Rect())
	if err != nil {
		return nil, fmt.Errorf("crop %v: %w", tile, err)
	}

	encoded, err := imaging.EncodeJPEG(region)
	if err != nil {
		return nil, fmt.Errorf("encode %v: %w", tile, err)
	}

	return predict(ctx, encoded, tile)
}
