package convert

import (
	"encoding/xml"

	"github.com/pkg/errors"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// vocAnnotation mirrors a Pascal VOC annotation file.
type vocAnnotation struct {
	XMLName  xml.Name    `xml:"annotation"`
	Filename string      `xml:"filename"`
	Size     vocSize     `xml:"size"`
	Objects  []vocObject `xml:"object"`
}

type vocSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

type vocObject struct {
	Name string `xml:"name"`
	// Confidence is an extension written for predictions; ground-truth VOC
	// files omit it.
	Confidence *float64  `xml:"confidence,omitempty"`
	BndBox     vocBndBox `xml:"bndbox"`
}

type vocBndBox struct {
	XMin int `xml:"xmin"`
	YMin int `xml:"ymin"`
	XMax int `xml:"xmax"`
	YMax int `xml:"ymax"`
}

// VOCFromCanonical renders an annotation set as Pascal VOC XML. Rotated
// boxes are written as their axis-aligned rectangles, since VOC has no
// rotation field.
func VOCFromCanonical(set *annotation.Set) ([]byte, error) {
	doc := vocAnnotation{
		Filename: set.Image.FileName,
		Size: vocSize{
			Width:  set.Image.Width,
			Height: set.Image.Height,
			Depth:  3,
		},
		Objects: make([]vocObject, 0, len(set.Detections)),
	}
	for _, d := range set.Detections {
		score := d.Score
		doc.Objects = append(doc.Objects, vocObject{
			Name:       d.Category,
			Confidence: &score,
			BndBox: vocBndBox{
				XMin: int(d.Box.X),
				YMin: int(d.Box.Y),
				XMax: int(d.Box.X + d.Box.Width),
				YMax: int(d.Box.Y + d.Box.Height),
			},
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to render VOC XML")
	}
	return append([]byte(xml.Header), out...), nil
}

// VOCToCanonical parses a Pascal VOC XML file into the canonical model.
// Objects without a confidence field are treated as ground truth and given
// score 1.
func VOCToCanonical(data []byte) (*annotation.Set, error) {
	var doc vocAnnotation
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse VOC XML")
	}

	set := annotation.NewSet(annotation.Image{
		Width:    doc.Size.Width,
		Height:   doc.Size.Height,
		FileName: doc.Filename,
	})
	for _, obj := range doc.Objects {
		score := 1.0
		if obj.Confidence != nil {
			score = *obj.Confidence
		}
		set.Add(annotation.Detection{
			Category: obj.Name,
			Box: annotation.Box{
				X:      float64(obj.BndBox.XMin),
				Y:      float64(obj.BndBox.YMin),
				Width:  float64(obj.BndBox.XMax - obj.BndBox.XMin),
				Height: float64(obj.BndBox.YMax - obj.BndBox.YMin),
			},
			Score: score,
		})
	}
	return set, nil
}
