package convert

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/cvninja/cv-ninja/internal/annotation"
	"github.com/cvninja/cv-ninja/internal/imaging"
)

// DirOptions configures directory-level conversion into Label Studio tasks.
type DirOptions struct {
	// Prefix is prepended to image paths in the task data.
	Prefix string
	// ImageDir, when set for VOC input, overrides the dimensions recorded
	// in each XML file with the actual dimensions of the matching image.
	// VOC files written by some annotation tools carry stale sizes.
	ImageDir string
}

// VOCDirToLabelStudio converts every Pascal VOC XML file in inputDir into a
// single Label Studio task file at outputPath.
func VOCDirToLabelStudio(inputDir, outputPath string, opts DirOptions) error {
	files, err := annotationFiles(inputDir, "*.xml")
	if err != nil {
		return err
	}

	sets := make([]*annotation.Set, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", filepath.Base(path))
		}
		set, err := VOCToCanonical(data)
		if err != nil {
			return errors.Wrapf(err, "failed to convert %s", filepath.Base(path))
		}
		if opts.ImageDir != "" && set.Image.FileName != "" {
			if err := refreshImageSize(set, opts.ImageDir); err != nil {
				return errors.Wrapf(err, "failed to convert %s", filepath.Base(path))
			}
		}
		sets = append(sets, set)
	}

	return writeLabelStudioTasks(sets, outputPath, opts.Prefix)
}

// LabelMeDirToLabelStudio converts every LabelMe JSON file in inputDir into
// a single Label Studio task file at outputPath.
func LabelMeDirToLabelStudio(inputDir, outputPath string, opts DirOptions) error {
	files, err := annotationFiles(inputDir, "*.json")
	if err != nil {
		return err
	}

	sets := make([]*annotation.Set, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", filepath.Base(path))
		}
		set, err := LabelMeToCanonical(data)
		if err != nil {
			return errors.Wrapf(err, "failed to convert %s", filepath.Base(path))
		}
		sets = append(sets, set)
	}

	return writeLabelStudioTasks(sets, outputPath, opts.Prefix)
}

// annotationFiles validates the input directory and returns its matching
// files in sorted order, so conversion output is stable across runs.
func annotationFiles(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Errorf("input path does not exist: %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("input path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list input directory")
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no %s files found in directory: %s", pattern, dir)
	}
	sort.Strings(files)
	return files, nil
}

func refreshImageSize(set *annotation.Set, imageDir string) error {
	img, err := imaging.Load(filepath.Join(imageDir, filepath.Base(set.Image.FileName)))
	if err != nil {
		return err
	}
	set.Image.Width = img.Bounds().Dx()
	set.Image.Height = img.Bounds().Dy()
	return nil
}

func writeLabelStudioTasks(sets []*annotation.Set, outputPath, prefix string) error {
	data, err := LabelStudioTasksFromCanonical(sets, LabelStudioOptions{Prefix: prefix})
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write output file")
	}
	return nil
}
