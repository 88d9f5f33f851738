package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cvninja/cv-ninja/internal/annotation"
	"github.com/cvninja/cv-ninja/internal/config"
	"github.com/cvninja/cv-ninja/internal/convert"
	"github.com/cvninja/cv-ninja/internal/imaging"
	"github.com/cvninja/cv-ninja/internal/predictor"
	"github.com/cvninja/cv-ninja/internal/render"
	"github.com/cvninja/cv-ninja/internal/tiling"
)

// predictClient is the common surface of the two HTTP predictor clients.
type predictClient interface {
	Predict(ctx context.Context, region []byte, tile tiling.Tile) ([]annotation.Detection, error)
	DatasetID() string
}

type predictFlags struct {
	fs *flag.FlagSet

	profile    string
	configFile string
	envFile    string

	format      string
	output      string
	prefix      string
	predictions bool
	overlayPath string
	verbose     bool
}

// newPredictFlags defines the predict flag set. Configuration flags are
// registered by koanf key so explicitly-set values can be layered over the
// profile, environment, and defaults.
func newPredictFlags(name string) *predictFlags {
	pf := &predictFlags{fs: flag.NewFlagSet(name, flag.ExitOnError)}
	fs := pf.fs

	fs.StringVar(&pf.profile, "profile", "", "endpoint profile name from the YAML config")
	fs.StringVar(&pf.configFile, "config-file", "", "path to the YAML config file")
	fs.StringVar(&pf.envFile, "env-file", "", "path to the .env file with credentials")

	fs.String("api-url", "", "prediction API URL")
	fs.String("api-key", "", "API key for bearer authentication")
	fs.String("iam-url", "", "IAM token service URL")
	fs.String("username", "", "IAM username")
	fs.String("password", "", "IAM password")
	fs.String("iam-domain", "", "IAM domain name")
	fs.String("iam-project", "", "IAM project name")
	fs.String("auth-type", "", "authentication type: api_key or iam")
	fs.String("mode", "", "upload mode: formdata or binary")
	fs.String("endpoint", "", "upload endpoint path for binary mode")
	fs.Int("tile-width", 0, "maximum tile width in pixels")
	fs.Int("tile-height", 0, "maximum tile height in pixels")
	fs.Int("overlap", -1, "overlap between adjacent tiles in pixels")
	fs.Float64("iou-threshold", 0, "IoU threshold for cross-tile duplicate suppression")

	fs.StringVar(&pf.format, "format", convert.FormatLabelStudio,
		fmt.Sprintf("output format: %s", strings.Join(convert.Formats(), ", ")))
	fs.StringVar(&pf.output, "output", "", "output file (single image) or directory (batch); stdout when empty")
	fs.StringVar(&pf.prefix, "prefix", "", "URL prefix for image paths in Label Studio output")
	fs.BoolVar(&pf.predictions, "predictions", false, "emit Label Studio predictions instead of annotations")
	fs.StringVar(&pf.overlayPath, "render", "", "also save an overlay image with drawn boxes (single image only)")
	fs.BoolVar(&pf.verbose, "verbose", false, "enable debug logging")

	return pf
}

// configKeys maps flag names to configuration keys. Only flags listed here
// participate in configuration layering.
var configKeys = map[string]string{
	"api-url":       "api_url",
	"api-key":       "api_key",
	"iam-url":       "iam_url",
	"username":      "username",
	"password":      "password",
	"iam-domain":    "iam_domain",
	"iam-project":   "iam_project",
	"auth-type":     "auth_type",
	"mode":          "mode",
	"endpoint":      "endpoint",
	"tile-width":    "tile_width",
	"tile-height":   "tile_height",
	"overlap":       "overlap",
	"iou-threshold": "iou_threshold",
}

// setFlags collects the configuration flags the user explicitly set.
func (pf *predictFlags) setFlags() map[string]any {
	set := make(map[string]any)
	pf.fs.Visit(func(f *flag.Flag) {
		key, ok := configKeys[f.Name]
		if !ok {
			return
		}
		set[key] = f.Value.(flag.Getter).Get()
	})
	return set
}

func runPredict(args []string) int {
	if len(args) < 1 {
		return fail("usage: cv-ninja predict <image|batch> [options] <path>")
	}
	sub := args[0]
	if sub != "image" && sub != "batch" {
		return fail("unknown predict subcommand: %s (expected image or batch)", sub)
	}

	pf := newPredictFlags("predict " + sub)
	if err := pf.fs.Parse(args[1:]); err != nil {
		return 2
	}
	if pf.fs.NArg() != 1 {
		return fail("usage: cv-ninja predict %s [options] <path>", sub)
	}
	target := pf.fs.Arg(0)

	cfg, err := config.Load(config.Options{
		EnvFile:    pf.envFile,
		ConfigFile: pf.configFile,
		Profile:    pf.profile,
		Flags:      pf.setFlags(),
	})
	if err != nil {
		return fail("configuration error: %v", err)
	}
	if cfg.APIURL == "" {
		return fail("no API URL configured: pass --api-url, select a --profile, or set PREDICTION_API_URL")
	}

	conv, err := convert.Lookup(pf.format)
	if err != nil {
		return fail("%v", err)
	}
	if conv.FromCanonical == nil {
		return fail("format %s does not support prediction output", pf.format)
	}

	log := newLogger(pf.verbose)
	defer log.Sync() //nolint:errcheck

	client, err := buildClient(cfg, log)
	if err != nil {
		return fail("%v", err)
	}

	tiler, err := tiling.New(cfg.Tiling(), log)
	if err != nil {
		return fail("configuration error: %v", err)
	}

	cache := imaging.NewCache()
	if sub == "image" {
		return predictImage(pf, tiler, client, cache, target, log)
	}
	return predictBatch(pf, tiler, client, cache, target, log)
}

func predictImage(pf *predictFlags, tiler *tiling.Tiler, client predictClient, cache *imaging.Cache, path string, log *zap.Logger) int {
	set, err := predictOne(tiler, client, cache, path)
	if err != nil {
		return fail("prediction failed: %v", err)
	}
	if failed := set.Meta.FailedTiles; len(failed) > 0 {
		log.Warn("partial result", zap.Ints("failed_tiles", failed))
	}

	if pf.overlayPath != "" {
		// Cache hit: the prediction pass already decoded this file.
		img, err := cache.Load(path)
		if err != nil {
			return fail("failed to load image for overlay: %v", err)
		}
		if err := render.Save(pf.overlayPath, render.Overlay(img, set)); err != nil {
			return fail("%v", err)
		}
	}

	data, err := renderSet(pf, set)
	if err != nil {
		return fail("%v", err)
	}
	return writeOutput(pf.output, data)
}

func predictBatch(pf *predictFlags, tiler *tiling.Tiler, client predictClient, cache *imaging.Cache, dir string, log *zap.Logger) int {
	paths, err := imagePaths(dir)
	if err != nil {
		return fail("%v", err)
	}

	var sets []*annotation.Set
	for _, path := range paths {
		set, err := predictOne(tiler, client, cache, path)
		// Each image is visited once per batch; evict it so memory stays
		// bounded on large directories.
		cache.Evict(path)
		if err != nil {
			// Batch runs mirror the tiler's partial-success policy: one
			// bad image does not abort the directory.
			log.Warn("skipping image", zap.String("path", path), zap.Error(err))
			continue
		}
		sets = append(sets, set)
	}
	if len(sets) == 0 {
		return fail("no image in %s produced a result", dir)
	}

	if pf.format == convert.FormatLabelStudio {
		data, err := convert.LabelStudioTasksFromCanonical(sets, convert.LabelStudioOptions{
			Prefix:      pf.prefix,
			Predictions: pf.predictions,
		})
		if err != nil {
			return fail("%v", err)
		}
		return writeOutput(pf.output, data)
	}

	// Other formats are one document per image, named after the source.
	if pf.output == "" {
		return fail("--output directory is required for batch %s output", pf.format)
	}
	if err := os.MkdirAll(pf.output, 0o755); err != nil {
		return fail("failed to create output directory: %v", err)
	}
	conv, _ := convert.Lookup(pf.format)
	for _, set := range sets {
		data, err := conv.FromCanonical(set)
		if err != nil {
			return fail("%v", err)
		}
		name := strings.TrimSuffix(filepath.Base(set.Image.FileName), filepath.Ext(set.Image.FileName))
		path := filepath.Join(pf.output, name+outputExt(pf.format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fail("failed to write %s: %v", path, err)
		}
	}
	return 0
}

func predictOne(tiler *tiling.Tiler, client predictClient, cache *imaging.Cache, path string) (*annotation.Set, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	set, err := tiler.Predict(context.Background(), img, filepath.Base(path), client.Predict)
	if err != nil {
		return nil, err
	}
	set.Meta.DatasetID = client.DatasetID()
	return set, nil
}

func buildClient(cfg *config.Config, log *zap.Logger) (predictClient, error) {
	auth, err := buildAuth(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == config.ModeBinary {
		return predictor.NewBinaryClient(cfg.APIURL, cfg.Endpoint, auth, nil, log), nil
	}
	return predictor.NewFormDataClient(cfg.APIURL, auth, nil, log), nil
}

func buildAuth(cfg *config.Config) (predictor.Auth, error) {
	authType := cfg.AuthType
	if authType == "" {
		// Infer from the supplied credentials.
		switch {
		case cfg.APIKey != "" && cfg.IAMURL != "":
			return nil, fmt.Errorf("both an API key and an IAM URL are configured; set auth_type to choose one")
		case cfg.APIKey != "":
			authType = config.AuthAPIKey
		case cfg.IAMURL != "":
			authType = config.AuthIAM
		default:
			return nil, nil
		}
	}

	switch authType {
	case config.AuthAPIKey:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("auth_type is api_key but no API key is configured")
		}
		return &predictor.APIKeyAuth{Key: cfg.APIKey}, nil
	case config.AuthIAM:
		if cfg.IAMURL == "" || cfg.Username == "" || cfg.Password == "" {
			return nil, fmt.Errorf("auth_type is iam but iam_url, username, or password is missing")
		}
		return predictor.NewIAMTokenAuth(predictor.IAMOptions{
			URL:      cfg.IAMURL,
			Username: cfg.Username,
			Password: cfg.Password,
			Domain:   cfg.IAMDomain,
			Project:  cfg.IAMProject,
		}), nil
	}
	return nil, nil
}

func renderSet(pf *predictFlags, set *annotation.Set) ([]byte, error) {
	if pf.format == convert.FormatLabelStudio {
		return convert.LabelStudioFromCanonical(set, convert.LabelStudioOptions{
			Prefix:      pf.prefix,
			Predictions: pf.predictions,
		})
	}
	conv, err := convert.Lookup(pf.format)
	if err != nil {
		return nil, err
	}
	return conv.FromCanonical(set)
}

func outputExt(format string) string {
	if format == convert.FormatVOC {
		return ".xml"
	}
	return ".json"
}

func writeOutput(path string, data []byte) int {
	if path == "" {
		fmt.Println(string(data))
		return 0
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fail("failed to write %s: %v", path, err)
	}
	return 0
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

func imagePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in directory %s", dir)
	}
	return paths, nil
}
