package annotation

import (
	"fmt"
	"sort"
)

// Image describes the source image a detection set refers to. Dimensions are
// fixed once a prediction run starts.
type Image struct {
	Width    int
	Height   int
	FileName string
}

// Box is a detection rectangle in pixel coordinates. X and Y name the
// top-left corner of the unrotated rectangle. Angle is in degrees, measured
// about the box's own center; 0 means axis-aligned.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Angle  float64
}

// Translate returns a copy of the box moved by (dx, dy). For rotated boxes
// this moves the center while leaving width, height, and angle untouched.
func (b Box) Translate(dx, dy float64) Box {
	b.X += dx
	b.Y += dy
	return b
}

// Area returns the area of the unrotated rectangle.
func (b Box) Area() float64 {
	return b.Width * b.Height
}

// IoU computes Intersection over Union on the axis-aligned rectangles of the
// two boxes. Rotation is deliberately ignored: duplicate suppression across
// tiles uses the unrotated extents even when a box carries an angle.
func (b Box) IoU(o Box) float64 {
	ix1 := max(b.X, o.X)
	iy1 := max(b.Y, o.Y)
	ix2 := min(b.X+b.Width, o.X+o.Width)
	iy2 := min(b.Y+b.Height, o.Y+o.Height)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH

	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func (b Box) String() string {
	return fmt.Sprintf("(%.1f, %.1f) %gx%g", b.X, b.Y, b.Width, b.Height)
}

// Detection is a single scored detection. Tile records the index of the tile
// whose predictor call produced it; detections from a whole-image run carry
// tile 0. Duplicates are never identified by an ID, only by geometric
// overlap plus category during the merge pass.
type Detection struct {
	Category string
	Box      Box
	Score    float64
	Tile     int
}

// Metadata carries aggregate counters for a prediction run.
type Metadata struct {
	// NumTiles is the number of planned tiles, including tiles that failed.
	NumTiles int
	// TotalDetections is the post-merge detection count.
	TotalDetections int
	// RawDetectionCount is the pre-merge detection count across all tiles.
	RawDetectionCount int
	// FailedTiles lists the indices of tiles whose predictor call failed.
	FailedTiles []int
	// DatasetID is an opaque identifier echoed from the prediction API,
	// empty when the API does not supply one.
	DatasetID string
}

// Set is the canonical annotation set: one image, its detections, the
// category vocabulary in first-seen order, and run metadata.
type Set struct {
	Image      Image
	Detections []Detection
	Categories []string
	Meta       Metadata

	seen map[string]bool
}

// NewSet returns an empty annotation set for the given image.
func NewSet(img Image) *Set {
	return &Set{
		Image: img,
		seen:  make(map[string]bool),
	}
}

// Add appends a detection, extending the category vocabulary on first sight
// of a new label.
func (s *Set) Add(d Detection) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
		for _, c := range s.Categories {
			s.seen[c] = true
		}
	}
	if !s.seen[d.Category] {
		s.seen[d.Category] = true
		s.Categories = append(s.Categories, d.Category)
	}
	s.Detections = append(s.Detections, d)
}

// CategoryID returns the 1-based position of a category in the vocabulary,
// or 0 if the category is unknown.
func (s *Set) CategoryID(name string) int {
	for i, c := range s.Categories {
		if c == name {
			return i + 1
		}
	}
	return 0
}

// SortDetections orders the detections for reproducible output: descending
// score, then ascending tile index, then insertion order.
func (s *Set) SortDetections() {
	sort.SliceStable(s.Detections, func(i, j int) bool {
		a, b := s.Detections[i], s.Detections[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Tile < b.Tile
	})
}
