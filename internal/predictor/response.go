package predictor

import (
	"sync"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// apiResponse is the detection schema shared by the prediction services.
// The result list mixes detections with a registration matrix entry, which
// carries no detection and is skipped.
type apiResponse struct {
	DatasetID   string          `json:"dataset_id"`
	Result      []apiResultItem `json:"result"`
	ImageWidth  int             `json:"image_width"`
	ImageHeight int             `json:"image_height"`
}

type apiResultItem struct {
	RegisterMatrix [][]float64 `json:"RegisterMatrix,omitempty"`
	Box            *apiBox     `json:"Box,omitempty"`
	Score          float64     `json:"Score"`
	Label          string      `json:"label"`
}

type apiBox struct {
	X      float64 `json:"X"`
	Y      float64 `json:"Y"`
	Width  float64 `json:"Width"`
	Height float64 `json:"Height"`
	Angle  float64 `json:"Angle"`
}

// detections converts the response into canonical detections, in the order
// the API returned them. Coordinates stay local to the uploaded region.
func (r *apiResponse) detections() []annotation.Detection {
	out := make([]annotation.Detection, 0, len(r.Result))
	for _, item := range r.Result {
		if item.Box == nil {
			continue
		}
		label := item.Label
		if label == "" {
			label = "unknown"
		}
		out = append(out, annotation.Detection{
			Category: label,
			Box: annotation.Box{
				X:      item.Box.X,
				Y:      item.Box.Y,
				Width:  item.Box.Width,
				Height: item.Box.Height,
				Angle:  item.Box.Angle,
			},
			Score: item.Score,
		})
	}
	return out
}

// datasetID remembers the first dataset identifier a client sees so the CLI
// can surface it in the output metadata. Safe for concurrent use.
type datasetID struct {
	mu sync.Mutex
	id string
}

func (d *datasetID) record(id string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	if d.id == "" {
		d.id = id
	}
	d.mu.Unlock()
}

func (d *datasetID) get() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}
