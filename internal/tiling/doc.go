// Package tiling splits oversized images into overlapping tiles, runs each
// tile through an injected predictor, remaps tile-local detections into
// original-image coordinates, and merges the overlapping results into a
// single de-duplicated detection set.
//
// # Pipeline
//
// A prediction run moves through a fixed sequence of stages:
//
//  1. Plan: compute the ordered tile grid covering the image
//  2. Execute: crop each tile and invoke the predictor on it
//  3. Remap: translate tile-local detections by the tile offset
//  4. Merge: greedy per-category non-maximum suppression across tiles
//
// Images no larger than the configured tile size skip the grid and run as a
// single whole-image tile; the merge pass still runs so the output contract
// is identical either way.
//
// # Tile Geometry
//
// Tiles are laid out row-major (X varies fastest) with a stride of
// tile size minus overlap. The last tile along each axis is pinned so its
// far edge lands exactly on the image edge, which guarantees full coverage
// without ever sampling outside the image. When the image is smaller than a
// tile along an axis, the single tile on that axis is clamped to the image
// extent.
//
// # Failure Policy
//
// A single tile's predictor failure is recorded and the run continues; the
// failed tile indices are reported in the result metadata. Only when every
// planned tile fails does the run return an error (PredictionFailure).
// Configuration problems (tile size, overlap, IoU threshold) fail before
// any tile executes.
//
// # Determinism
//
// For identical inputs the planner emits an identical tile sequence, and the
// merger breaks score ties by tile index and then insertion order, so the
// output detection order is reproducible even if tile execution were
// reordered or parallelized by a caller-supplied predictor.
package tiling
