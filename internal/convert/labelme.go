package convert

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// labelMeFile mirrors a LabelMe JSON annotation file.
type labelMeFile struct {
	ImagePath   string         `json:"imagePath"`
	ImageWidth  int            `json:"imageWidth"`
	ImageHeight int            `json:"imageHeight"`
	Shapes      []labelMeShape `json:"shapes"`
}

type labelMeShape struct {
	Label     string       `json:"label"`
	Points    [][2]float64 `json:"points"`
	ShapeType string       `json:"shape_type"`
}

// LabelMeToCanonical parses a LabelMe JSON file into the canonical model.
// Rectangle shapes become boxes directly; polygon shapes are reduced to
// their axis-aligned bounding box. Shapes with fewer than two points are
// skipped. LabelMe annotations are ground truth, so every detection gets
// score 1.
func LabelMeToCanonical(data []byte) (*annotation.Set, error) {
	var doc labelMeFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse LabelMe JSON")
	}

	set := annotation.NewSet(annotation.Image{
		Width:    doc.ImageWidth,
		Height:   doc.ImageHeight,
		FileName: doc.ImagePath,
	})
	for _, shape := range doc.Shapes {
		if len(shape.Points) < 2 {
			continue
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, p := range shape.Points {
			minX = math.Min(minX, p[0])
			minY = math.Min(minY, p[1])
			maxX = math.Max(maxX, p[0])
			maxY = math.Max(maxY, p[1])
		}
		set.Add(annotation.Detection{
			Category: shape.Label,
			Box: annotation.Box{
				X:      minX,
				Y:      minY,
				Width:  maxX - minX,
				Height: maxY - minY,
			},
			Score: 1,
		})
	}
	return set, nil
}
