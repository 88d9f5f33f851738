package main

import (
	"flag"
	"fmt"

	"github.com/cvninja/cv-ninja/internal/convert"
)

func runConvert(args []string) int {
	if len(args) < 1 {
		return fail("usage: cv-ninja convert <voc-to-labelstudio|labelme-to-labelstudio> [options] <in-dir> <out-file>")
	}
	sub := args[0]

	fs := flag.NewFlagSet("convert "+sub, flag.ExitOnError)
	prefix := fs.String("prefix", "", "URL prefix for image paths in the output, e.g. /data/images/")
	imageDir := fs.String("image-dir", "", "directory with the source images; overrides sizes recorded in VOC XML")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		return fail("usage: cv-ninja convert %s [options] <in-dir> <out-file>", sub)
	}
	inputDir, outputPath := fs.Arg(0), fs.Arg(1)
	opts := convert.DirOptions{Prefix: *prefix, ImageDir: *imageDir}

	var err error
	switch sub {
	case "voc-to-labelstudio":
		err = convert.VOCDirToLabelStudio(inputDir, outputPath, opts)
	case "labelme-to-labelstudio":
		err = convert.LabelMeDirToLabelStudio(inputDir, outputPath, opts)
	default:
		return fail("unknown convert subcommand: %s", sub)
	}
	if err != nil {
		return fail("conversion failed: %v", err)
	}

	fmt.Printf("wrote %s\n", outputPath)
	return 0
}
