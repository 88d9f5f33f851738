package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// jpegQuality is used when encoding tile regions for upload. The prediction
// APIs accept standard JPEG; 90 keeps small defects visible without bloating
// the request body.
const jpegQuality = 90

// CropRegion extracts the exact pixel rectangle r from an image. The source
// image is never modified; the returned image is always a copy.
func CropRegion(img image.Image, r image.Rectangle) (image.Image, error) {
	bounds := img.Bounds()
	if !r.In(bounds) {
		return nil, fmt.Errorf("region %v outside image bounds %v", r, bounds)
	}
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, fmt.Errorf("invalid region %v: zero or negative extent", r)
	}
	return imaging.Crop(img, r), nil
}

// EncodeJPEG encodes an image as JPEG bytes suitable for uploading to a
// prediction API.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}
	return buf.Bytes(), nil
}
