package tiling

import (
	"fmt"
	"sort"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// Merge removes duplicate detections produced by overlapping tiles using
// greedy non-maximum suppression, applied per category independently:
// repeatedly keep the highest-scoring remaining candidate and discard every
// remaining same-category candidate whose IoU with it reaches the threshold.
//
// IoU is computed on axis-aligned rectangles even for rotated boxes; the
// rotation angle is ignored for overlap purposes.
//
// Score ties break by smaller tile index, then by insertion order, which
// makes the result deterministic and independent of the order in which tiles
// were executed. The input slice is not modified; the kept detections are
// returned as a new slice ordered by descending score (with the same
// tie-break), so merging an already-merged set is a no-op.
func Merge(dets []annotation.Detection, iouThreshold float64) ([]annotation.Detection, error) {
	if iouThreshold <= 0 || iouThreshold > 1 {
		return nil, &ConfigurationError{
			Param:  "iou threshold",
			Reason: fmt.Sprintf("must be in (0, 1], got %g", iouThreshold),
		}
	}

	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	// Stable sort preserves insertion order as the final tie-break.
	sort.SliceStable(order, func(i, j int) bool {
		a, b := dets[order[i]], dets[order[j]]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Tile < b.Tile
	})

	kept := make([]annotation.Detection, 0, len(dets))
	for _, idx := range order {
		cand := dets[idx]
		suppressed := false
		for _, k := range kept {
			if k.Category != cand.Category {
				continue
			}
			if k.Box.IoU(cand.Box) >= iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept, nil
}
