package tiling

import (
	"fmt"
	"image"
)

// Default parameters, matching the prediction service's maximum input size.
const (
	DefaultTileWidth    = 1386
	DefaultTileHeight   = 1516
	DefaultOverlap      = 32
	DefaultIoUThreshold = 0.5
)

// Options holds the validated tiling parameters. The zero value is not
// usable; start from DefaultOptions.
type Options struct {
	// TileWidth and TileHeight are the maximum tile dimensions in pixels.
	TileWidth  int
	TileHeight int
	// Overlap is the shared pixel margin between adjacent tiles, so that
	// objects straddling a tile boundary appear whole in at least one tile.
	Overlap int
	// IoUThreshold is the minimum Intersection over Union at which two
	// same-category detections are considered duplicates during merge.
	IoUThreshold float64
}

// DefaultOptions returns the standard tiling parameters.
func DefaultOptions() Options {
	return Options{
		TileWidth:    DefaultTileWidth,
		TileHeight:   DefaultTileHeight,
		Overlap:      DefaultOverlap,
		IoUThreshold: DefaultIoUThreshold,
	}
}

// Validate checks the option invariants: tile dimensions must be positive
// and strictly larger than the (non-negative) overlap, and the IoU
// threshold must be in (0, 1].
func (o Options) Validate() error {
	if o.TileWidth <= 0 {
		return &ConfigurationError{Param: "tile width", Reason: fmt.Sprintf("must be positive, got %d", o.TileWidth)}
	}
	if o.TileHeight <= 0 {
		return &ConfigurationError{Param: "tile height", Reason: fmt.Sprintf("must be positive, got %d", o.TileHeight)}
	}
	if o.Overlap < 0 {
		return &ConfigurationError{Param: "overlap", Reason: fmt.Sprintf("must be non-negative, got %d", o.Overlap)}
	}
	if o.Overlap >= o.TileWidth || o.Overlap >= o.TileHeight {
		return &ConfigurationError{
			Param:  "overlap",
			Reason: fmt.Sprintf("%d must be smaller than the tile size %dx%d", o.Overlap, o.TileWidth, o.TileHeight),
		}
	}
	if o.IoUThreshold <= 0 || o.IoUThreshold > 1 {
		return &ConfigurationError{
			Param:  "iou threshold",
			Reason: fmt.Sprintf("must be in (0, 1], got %g", o.IoUThreshold),
		}
	}
	return nil
}

// Tile is one rectangular sub-region of the source image, identified by its
// ordinal in row-major scan order and its placement in original-image pixel
// coordinates.
type Tile struct {
	Index  int
	X0     int
	Y0     int
	Width  int
	Height int
}

// Rect returns the tile's extent as an image.Rectangle.
func (t Tile) Rect() image.Rectangle {
	return image.Rect(t.X0, t.Y0, t.X0+t.Width, t.Y0+t.Height)
}

func (t Tile) String() string {
	return fmt.Sprintf("tile %d at (%d, %d) %dx%d", t.Index, t.X0, t.Y0, t.Width, t.Height)
}

// NeedsTiling reports whether an image exceeds the tile size in either
// dimension. Images that fit run as a single whole-image tile.
func NeedsTiling(imageWidth, imageHeight int, opts Options) bool {
	return imageWidth > opts.TileWidth || imageHeight > opts.TileHeight
}

// Plan computes the ordered set of tiles covering an image, row-major with X
// varying fastest. Origins advance by tile size minus overlap; the last tile
// on each axis is pinned so its far edge equals the image edge, and a tile
// is clamped to the image extent when the image is smaller than the tile.
// The result is deterministic: identical inputs yield an identical sequence.
func Plan(imageWidth, imageHeight int, opts Options) ([]Tile, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if imageWidth <= 0 || imageHeight <= 0 {
		return nil, &ConfigurationError{
			Param:  "image size",
			Reason: fmt.Sprintf("must be positive, got %dx%d", imageWidth, imageHeight),
		}
	}

	xs := axisOrigins(imageWidth, opts.TileWidth, opts.Overlap)
	ys := axisOrigins(imageHeight, opts.TileHeight, opts.Overlap)

	tiles := make([]Tile, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			tiles = append(tiles, Tile{
				Index:  len(tiles),
				X0:     x,
				Y0:     y,
				Width:  min(opts.TileWidth, imageWidth),
				Height: min(opts.TileHeight, imageHeight),
			})
		}
	}
	return tiles, nil
}

// axisOrigins generates tile origins along one axis: 0, stride, 2*stride,
// and so on, replacing the origin that would overrun the image with one
// pinned to the far edge. An image no larger than the tile yields a single
// origin at 0 (the tile width is clamped by the caller).
func axisOrigins(imageExtent, tileExtent, overlap int) []int {
	if imageExtent <= tileExtent {
		return []int{0}
	}
	stride := tileExtent - overlap
	var origins []int
	for x := 0; ; x += stride {
		if x+tileExtent >= imageExtent {
			origins = append(origins, imageExtent-tileExtent)
			return origins
		}
		origins = append(origins, x)
	}
}
