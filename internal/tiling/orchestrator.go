package tiling

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// Tiler drives tiled prediction over a source image: it plans the tile grid,
// executes the predictor per tile, remaps the results into original-image
// coordinates, and merges them into one canonical annotation set.
//
// Tiles are processed strictly in planned order, one predictor invocation in
// flight at a time. The source image is read-only for the duration of a run
// and no state is shared between runs.
type Tiler struct {
	opts Options
	log  *zap.Logger
}

// New returns a Tiler with validated options. A nil logger disables logging.
func New(opts Options, log *zap.Logger) (*Tiler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tiler{opts: opts, log: log}, nil
}

// Options returns the tiler's validated parameters.
func (t *Tiler) Options() Options {
	return t.opts
}

// Predict runs the full pipeline over one image and returns the merged
// annotation set. fileName is recorded in the result and may be empty.
//
// Per-tile predictor failures do not abort the run: the surviving tiles
// produce a usable partial result and the failed tile indices are reported
// in the metadata. Only when every tile fails is a *PredictionFailure
// returned. Cancelling the context marks all not-yet-started tiles as
// failed.
func (t *Tiler) Predict(ctx context.Context, img image.Image, fileName string, predict PredictFunc) (*annotation.Set, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	plan, err := Plan(width, height, t.opts)
	if err != nil {
		return nil, err
	}

	if NeedsTiling(width, height, t.opts) {
		t.log.Debug("tiling image",
			zap.Int("width", width),
			zap.Int("height", height),
			zap.Int("tiles", len(plan)),
		)
	}

	var (
		accumulated []annotation.Detection
		tileErrors  []*TileError
		rawCount    int
	)
	for _, tile := range plan {
		if ctx.Err() != nil {
			tileErrors = append(tileErrors, &TileError{Tile: tile.Index, Err: ctx.Err()})
			continue
		}

		dets, err := executeTile(ctx, img, tile, predict)
		if err != nil {
			te := &TileError{Tile: tile.Index, Err: err}
			tileErrors = append(tileErrors, te)
			t.log.Warn("tile prediction failed", zap.Int("tile", tile.Index), zap.Error(err))
			continue
		}

		remapped := Remap(dets, tile, annotation.Image{Width: width, Height: height}, t.log)
		rawCount += len(remapped)
		accumulated = append(accumulated, remapped...)
	}

	if len(tileErrors) == len(plan) {
		return nil, &PredictionFailure{TileErrors: tileErrors}
	}

	merged, err := Merge(accumulated, t.opts.IoUThreshold)
	if err != nil {
		// Unreachable for a validated Tiler; surfaced for direct callers.
		return nil, fmt.Errorf("merge: %w", err)
	}

	set := annotation.NewSet(annotation.Image{
		Width:    width,
		Height:   height,
		FileName: fileName,
	})
	for _, d := range merged {
		set.Add(d)
	}
	set.SortDetections()
	set.Meta = annotation.Metadata{
		NumTiles:          len(plan),
		TotalDetections:   len(merged),
		RawDetectionCount: rawCount,
		FailedTiles:       failedIndices(tileErrors),
	}
	return set, nil
}

func failedIndices(errs []*TileError) []int {
	if len(errs) == 0 {
		return nil
	}
	idx := make([]int, len(errs))
	for i, te := range errs {
		idx[i] = te.Tile
	}
	return idx
}
