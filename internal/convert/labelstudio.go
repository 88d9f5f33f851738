package convert

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/uuid"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// LabelStudioOptions controls how tasks are rendered.
type LabelStudioOptions struct {
	// Prefix is prepended to the image file name in the task data, e.g.
	// "/data/images/".
	Prefix string
	// Predictions renders detections under the task's "predictions" field
	// instead of "annotations", for import as model pre-annotations.
	Predictions bool
}

type lsTask struct {
	Data        lsData     `json:"data"`
	Annotations []lsResult `json:"annotations,omitempty"`
	Predictions []lsResult `json:"predictions,omitempty"`
}

type lsData struct {
	Image       string `json:"image"`
	Filename    string `json:"filename,omitempty"`
	Label       string `json:"label"`
	ReviewLabel string `json:"review_label,omitempty"`
	TargetClass string `json:"target_class,omitempty"`
}

type lsResult struct {
	Result []lsResultItem `json:"result"`
}

type lsResultItem struct {
	ID             string  `json:"id"`
	FromName       string  `json:"from_name"`
	ToName         string  `json:"to_name"`
	Type           string  `json:"type"`
	Value          lsValue `json:"value"`
	OriginalWidth  int     `json:"original_width"`
	OriginalHeight int     `json:"original_height"`
	Score          float64 `json:"score"`
}

// lsValue holds the rectangle in Label Studio's percentage coordinates,
// relative to the original image dimensions.
type lsValue struct {
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	RectangleLabels []string `json:"rectanglelabels"`
}

// LabelStudioFromCanonical renders one annotation set as a Label Studio
// task. Pixel coordinates become percentages of the image dimensions.
func LabelStudioFromCanonical(set *annotation.Set, opts LabelStudioOptions) ([]byte, error) {
	task := labelStudioTask(set, opts)
	return json.MarshalIndent(task, "", "  ")
}

// LabelStudioTasksFromCanonical renders several annotation sets as a Label
// Studio task array, the shape Label Studio's import expects.
func LabelStudioTasksFromCanonical(sets []*annotation.Set, opts LabelStudioOptions) ([]byte, error) {
	tasks := make([]lsTask, 0, len(sets))
	for _, set := range sets {
		tasks = append(tasks, labelStudioTask(set, opts))
	}
	return json.MarshalIndent(tasks, "", "  ")
}

func labelStudioTask(set *annotation.Set, opts LabelStudioOptions) lsTask {
	baseName, reviewLabel, targetClass := parseFilenameMetadata(set.Image.FileName)

	items := make([]lsResultItem, 0, len(set.Detections))
	labels := make(map[string]bool)
	for _, d := range set.Detections {
		items = append(items, lsResultItem{
			ID:       uuid.Must(uuid.NewV4()).String(),
			FromName: "label",
			ToName:   "image",
			Type:     "rectanglelabels",
			Value: lsValue{
				X:               percent(d.Box.X, set.Image.Width),
				Y:               percent(d.Box.Y, set.Image.Height),
				Width:           percent(d.Box.Width, set.Image.Width),
				Height:          percent(d.Box.Height, set.Image.Height),
				RectangleLabels: []string{d.Category},
			},
			OriginalWidth:  set.Image.Width,
			OriginalHeight: set.Image.Height,
			Score:          d.Score,
		})
		labels[d.Category] = true
	}

	task := lsTask{
		Data: lsData{
			Image:       opts.Prefix + baseName,
			Filename:    baseName,
			Label:       joinSorted(labels),
			ReviewLabel: reviewLabel,
			TargetClass: targetClass,
		},
	}
	if len(items) > 0 {
		if opts.Predictions {
			task.Predictions = []lsResult{{Result: items}}
		} else {
			task.Annotations = []lsResult{{Result: items}}
		}
	}
	return task
}

func percent(v float64, extent int) float64 {
	if extent <= 0 {
		return 0
	}
	return v / float64(extent) * 100
}

func joinSorted(labels map[string]bool) string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// parseFilenameMetadata extracts review metadata encoded in file names of
// the form {REVIEW_LABEL}_{TARGET_CLASS}_rest.ext, where REVIEW_LABEL is FN
// (false negative) or FP (false positive). Plain file names yield empty
// metadata.
func parseFilenameMetadata(fileName string) (base, reviewLabel, targetClass string) {
	base = filepath.Base(fileName)
	if base == "." {
		base = ""
	}
	if strings.HasPrefix(base, "FN_") || strings.HasPrefix(base, "FP_") {
		parts := strings.Split(base, "_")
		if len(parts) >= 2 {
			reviewLabel = parts[0]
			targetClass = parts[1]
		}
	}
	return base, reviewLabel, targetClass
}
