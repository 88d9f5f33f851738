// Package annotation defines the canonical in-memory detection model shared
// by the tiling pipeline, the predictor clients, and the format converters.
//
// Every external representation (the vendor API response, COCO JSON, Label
// Studio tasks, Pascal VOC XML) is translated into or out of this model at
// the system boundary; the tiling and merging logic only ever sees these
// types.
//
// # Coordinate System
//
// All coordinates are pixels in the source image, 0-based, with the origin
// at the top-left corner. X increases rightward, Y increases downward.
// A Box records the top-left corner of its unrotated rectangle plus width
// and height; for rotated boxes the Angle is degrees about the box's own
// center, and the X/Y/Width/Height still describe the unrotated rectangle.
//
// # Ownership
//
// A Set is created fresh per prediction run and is owned exclusively by its
// creator. Nothing in this package shares mutable state between runs.
package annotation
