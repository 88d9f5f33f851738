package convert

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/cvninja/cv-ninja/internal/annotation"
)

// Format tags accepted by Lookup and the CLI's --format flag.
const (
	FormatCOCO        = "coco"
	FormatLabelStudio = "labelstudio"
	FormatVOC         = "voc"
	FormatLabelMe     = "labelme"
)

// Converter is a pair of pure translation functions for one external format.
// Either direction may be nil when the format only supports the other.
type Converter struct {
	// ToCanonical parses external data into the canonical model.
	ToCanonical func(data []byte) (*annotation.Set, error)
	// FromCanonical renders the canonical model into the external format.
	FromCanonical func(set *annotation.Set) ([]byte, error)
}

var registry = map[string]Converter{
	FormatCOCO: {ToCanonical: COCOToCanonical, FromCanonical: COCOFromCanonical},
	FormatLabelStudio: {FromCanonical: func(set *annotation.Set) ([]byte, error) {
		return LabelStudioFromCanonical(set, LabelStudioOptions{})
	}},
	FormatVOC:     {ToCanonical: VOCToCanonical, FromCanonical: VOCFromCanonical},
	FormatLabelMe: {ToCanonical: LabelMeToCanonical},
}

// Lookup returns the converter registered for a format tag.
func Lookup(format string) (Converter, error) {
	c, ok := registry[format]
	if !ok {
		return Converter{}, errors.Errorf("unsupported format %q (supported: %v)", format, Formats())
	}
	return c, nil
}

// Formats lists the registered format tags, sorted.
func Formats() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
