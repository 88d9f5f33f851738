package convert

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// cocoDocument mirrors the persisted COCO-style JSON artifact. The metadata
// object is an extension carrying the tiling run counters; downstream
// consumers rely on these exact field names.
type cocoDocument struct {
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
	Metadata    cocoMetadata     `json:"metadata"`
}

type cocoImage struct {
	ID       int    `json:"id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileName string `json:"file_name"`
}

type cocoAnnotation struct {
	ID         int        `json:"id"`
	ImageID    int        `json:"image_id"`
	CategoryID int        `json:"category_id"`
	BBox       [4]float64 `json:"bbox"`
	Area       float64    `json:"area"`
	Score      float64    `json:"score"`
	IsCrowd    int        `json:"iscrowd"`
	// Angle is an extension for rotated boxes, omitted when axis-aligned.
	Angle float64 `json:"angle,omitempty"`
}

type cocoCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type cocoMetadata struct {
	NumTiles          int    `json:"num_tiles"`
	TotalDetections   int    `json:"total_detections"`
	RawDetectionCount int    `json:"raw_detection_count,omitempty"`
	FailedTiles       []int  `json:"failed_tiles,omitempty"`
	DatasetID         string `json:"dataset_id,omitempty"`
}

// COCOFromCanonical renders an annotation set as a COCO JSON document.
// Annotation and category IDs are assigned sequentially from 1; category IDs
// follow the set's first-seen vocabulary order.
func COCOFromCanonical(set *annotation.Set) ([]byte, error) {
	doc := cocoDocument{
		Images: []cocoImage{{
			ID:       1,
			Width:    set.Image.Width,
			Height:   set.Image.Height,
			FileName: set.Image.FileName,
		}},
		Annotations: make([]cocoAnnotation, 0, len(set.Detections)),
		Categories:  make([]cocoCategory, 0, len(set.Categories)),
		Metadata: cocoMetadata{
			NumTiles:          set.Meta.NumTiles,
			TotalDetections:   set.Meta.TotalDetections,
			RawDetectionCount: set.Meta.RawDetectionCount,
			FailedTiles:       set.Meta.FailedTiles,
			DatasetID:         set.Meta.DatasetID,
		},
	}

	for i, name := range set.Categories {
		doc.Categories = append(doc.Categories, cocoCategory{ID: i + 1, Name: name})
	}

	for i, d := range set.Detections {
		doc.Annotations = append(doc.Annotations, cocoAnnotation{
			ID:         i + 1,
			ImageID:    1,
			CategoryID: set.CategoryID(d.Category),
			BBox:       [4]float64{d.Box.X, d.Box.Y, d.Box.Width, d.Box.Height},
			Area:       d.Box.Area(),
			Score:      d.Score,
			Angle:      d.Box.Angle,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// COCOToCanonical parses a COCO JSON document into the canonical model.
func COCOToCanonical(data []byte) (*annotation.Set, error) {
	var doc cocoDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse COCO document")
	}

	var img annotation.Image
	if len(doc.Images) > 0 {
		img = annotation.Image{
			Width:    doc.Images[0].Width,
			Height:   doc.Images[0].Height,
			FileName: doc.Images[0].FileName,
		}
	}

	categories := make(map[int]string, len(doc.Categories))
	for _, c := range doc.Categories {
		categories[c.ID] = c.Name
	}

	set := annotation.NewSet(img)
	for _, a := range doc.Annotations {
		name, ok := categories[a.CategoryID]
		if !ok {
			name = "unknown"
		}
		set.Add(annotation.Detection{
			Category: name,
			Box: annotation.Box{
				X:      a.BBox[0],
				Y:      a.BBox[1],
				Width:  a.BBox[2],
				Height: a.BBox[3],
				Angle:  a.Angle,
			},
			Score: a.Score,
		})
	}
	set.Meta = annotation.Metadata{
		NumTiles:          doc.Metadata.NumTiles,
		TotalDetections:   doc.Metadata.TotalDetections,
		RawDetectionCount: doc.Metadata.RawDetectionCount,
		FailedTiles:       doc.Metadata.FailedTiles,
		DatasetID:         doc.Metadata.DatasetID,
	}
	return set, nil
}
