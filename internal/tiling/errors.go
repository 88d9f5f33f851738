package tiling

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid tiling or merge parameter. It is
// returned before any tile executes and is never retried.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// TileError records the failure of a single tile's predictor invocation.
// A TileError does not abort the run; it is accumulated and surfaced via
// the result metadata.
type TileError struct {
	Tile int
	Err  error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile %d: %v", e.Tile, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}

// PredictionFailure is the terminal error returned when every planned tile
// failed. It carries the per-tile errors so callers can inspect the causes.
type PredictionFailure struct {
	TileErrors []*TileError
}

func (e *PredictionFailure) Error() string {
	msgs := make([]string, len(e.TileErrors))
	for i, te := range e.TileErrors {
		msgs[i] = te.Error()
	}
	return fmt.Sprintf("all %d tiles failed: %s", len(e.TileErrors), strings.Join(msgs, "; "))
}
