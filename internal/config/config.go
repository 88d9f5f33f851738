// Package config resolves the tool's layered configuration. Precedence,
// highest first: CLI flags, the selected YAML endpoint profile, environment
// variables (a .env file is loaded first, without overriding the process
// environment), then built-in defaults.
//
// The tiling core never reads configuration; it receives the final scalar
// values from here and validates them itself.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/pkg/errors"

	"github.com/cvninja/cv-ninja/internal/tiling"
)

// EnvPrefix is the prefix of the recognized environment variables, e.g.
// PREDICTION_API_URL, PREDICTION_API_KEY, PREDICTION_IAM_URL.
const EnvPrefix = "PREDICTION_"

// Upload modes.
const (
	ModeFormData = "formdata"
	ModeBinary   = "binary"
)

// Auth types.
const (
	AuthAPIKey = "api_key"
	AuthIAM    = "iam"
)

// Config holds the resolved configuration.
type Config struct {
	APIURL     string `koanf:"api_url"`
	APIKey     string `koanf:"api_key"`
	IAMURL     string `koanf:"iam_url"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	IAMDomain  string `koanf:"iam_domain"`
	IAMProject string `koanf:"iam_project"`
	AuthType   string `koanf:"auth_type"`
	Mode       string `koanf:"mode"`
	Endpoint   string `koanf:"endpoint"`

	TileWidth    int     `koanf:"tile_width"`
	TileHeight   int     `koanf:"tile_height"`
	Overlap      int     `koanf:"overlap"`
	IoUThreshold float64 `koanf:"iou_threshold"`
}

// Options selects the configuration sources.
type Options struct {
	// EnvFile is an explicit .env path; when empty, a .env is searched in
	// the working directory and its parents.
	EnvFile string
	// ConfigFile is an explicit YAML profile file; when empty and Profile
	// is set, cv-ninja.yaml or endpoints.yaml is searched in the working
	// directory and its parents.
	ConfigFile string
	// Profile names the endpoint profile under the YAML file's
	// "endpoints" section.
	Profile string
	// Flags carries explicitly-set CLI flag values, keyed like the koanf
	// tags above. Flags win over every other source.
	Flags map[string]any
}

// Load resolves the configuration from all sources.
func Load(opts Options) (*Config, error) {
	loadDotenv(opts.EnvFile)

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment")
	}

	if opts.Profile != "" {
		if err := loadProfile(k, opts.Profile, opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	if len(opts.Flags) > 0 {
		if err := k.Load(confmap.Provider(opts.Flags, "."), nil); err != nil {
			return nil, errors.Wrap(err, "failed to apply flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"mode":          ModeFormData,
		"endpoint":      "/upload",
		"tile_width":    tiling.DefaultTileWidth,
		"tile_height":   tiling.DefaultTileHeight,
		"overlap":       tiling.DefaultOverlap,
		"iou_threshold": tiling.DefaultIoUThreshold,
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeFormData, ModeBinary:
	default:
		return errors.Errorf("invalid mode %q (expected %s or %s)", c.Mode, ModeFormData, ModeBinary)
	}
	switch c.AuthType {
	case "", AuthAPIKey, AuthIAM:
	default:
		return errors.Errorf("invalid auth_type %q (expected %s or %s)", c.AuthType, AuthAPIKey, AuthIAM)
	}
	return nil
}

// Tiling returns the tiling parameters; the tiling package validates them.
func (c *Config) Tiling() tiling.Options {
	return tiling.Options{
		TileWidth:    c.TileWidth,
		TileHeight:   c.TileHeight,
		Overlap:      c.Overlap,
		IoUThreshold: c.IoUThreshold,
	}
}

// loadDotenv loads credentials from a .env file into the process
// environment. Existing environment variables are not overridden. A missing
// file is not an error; credentials can come from the real environment.
func loadDotenv(explicit string) {
	path := explicit
	if path == "" {
		path = findUpward(".env")
	}
	if path == "" {
		return
	}
	_ = godotenv.Load(path)
}

// loadProfile merges one endpoint profile from the YAML config file.
func loadProfile(k *koanf.Koanf, profile, configFile string) error {
	path := configFile
	if path == "" {
		for _, name := range []string{"cv-ninja.yaml", "endpoints.yaml", "cv-ninja.yml", "endpoints.yml"} {
			if path = findUpward(name); path != "" {
				break
			}
		}
	}
	if path == "" {
		return errors.New("config file not found: create cv-ninja.yaml or endpoints.yaml, or pass --config-file")
	}

	pk := koanf.New(".")
	if err := pk.Load(file.Provider(path), yaml.Parser()); err != nil {
		return errors.Wrapf(err, "failed to load config file %s", path)
	}
	if !pk.Exists("endpoints") {
		return errors.Errorf("config file %s must contain an 'endpoints' section", path)
	}
	if !pk.Exists("endpoints." + profile) {
		return errors.Errorf("profile %q not found in %s (available: %s)",
			profile, path, strings.Join(pk.MapKeys("endpoints"), ", "))
	}
	return k.Merge(pk.Cut("endpoints." + profile))
}

// findUpward searches for a file in the working directory and its parents.
func findUpward(name string) string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
