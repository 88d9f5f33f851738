package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

const sampleLabelMe = `{
	"imagePath": "scene.jpg",
	"imageWidth": 640,
	"imageHeight": 480,
	"shapes": [
		{
			"label": "car",
			"shape_type": "rectangle",
			"points": [[100, 120], [150, 160]]
		},
		{
			"label": "roof",
			"shape_type": "polygon",
			"points": [[10, 40], [30, 10], [50, 40], [30, 60]]
		},
		{
			"label": "stray",
			"shape_type": "point",
			"points": [[5, 5]]
		}
	]
}`

func TestLabelMeToCanonical(t *testing.T) {
	set, err := LabelMeToCanonical([]byte(sampleLabelMe))
	require.NoError(t, err)

	assert.Equal(t, annotation.Image{Width: 640, Height: 480, FileName: "scene.jpg"}, set.Image)
	// The single-point shape is skipped.
	require.Len(t, set.Detections, 2)

	assert.Equal(t, "car", set.Detections[0].Category)
	assert.Equal(t, annotation.Box{X: 100, Y: 120, Width: 50, Height: 40}, set.Detections[0].Box)
	assert.Equal(t, 1.0, set.Detections[0].Score)

	// Polygons reduce to their axis-aligned bounding box.
	assert.Equal(t, "roof", set.Detections[1].Category)
	assert.Equal(t, annotation.Box{X: 10, Y: 10, Width: 40, Height: 50}, set.Detections[1].Box)
}

func TestLabelMeToCanonical_ReversedRectangle(t *testing.T) {
	// Some tools record the bottom-right corner first.
	doc := `{
		"imagePath": "a.jpg", "imageWidth": 100, "imageHeight": 100,
		"shapes": [{"label": "car", "shape_type": "rectangle", "points": [[50, 60], [10, 20]]}]
	}`

	set, err := LabelMeToCanonical([]byte(doc))
	require.NoError(t, err)
	require.Len(t, set.Detections, 1)
	assert.Equal(t, annotation.Box{X: 10, Y: 20, Width: 40, Height: 40}, set.Detections[0].Box)
}

func TestLabelMeToCanonical_Malformed(t *testing.T) {
	_, err := LabelMeToCanonical([]byte("{broken"))
	assert.Error(t, err)
}
