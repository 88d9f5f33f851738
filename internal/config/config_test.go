package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvninja/cv-ninja/internal/tiling"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(Options{EnvFile: devNullEnv(t)})
	require.NoError(t, err)

	assert.Equal(t, ModeFormData, cfg.Mode)
	assert.Equal(t, "/upload", cfg.Endpoint)
	assert.Equal(t, tiling.DefaultTileWidth, cfg.TileWidth)
	assert.Equal(t, tiling.DefaultTileHeight, cfg.TileHeight)
	assert.Equal(t, tiling.DefaultOverlap, cfg.Overlap)
	assert.Equal(t, tiling.DefaultIoUThreshold, cfg.IoUThreshold)
	assert.Empty(t, cfg.APIURL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PREDICTION_API_URL", "https://api.example.com/predict")
	t.Setenv("PREDICTION_API_KEY", "k-env")
	t.Setenv("PREDICTION_TILE_WIDTH", "512")

	cfg, err := Load(Options{EnvFile: devNullEnv(t)})
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/predict", cfg.APIURL)
	assert.Equal(t, "k-env", cfg.APIKey)
	assert.Equal(t, 512, cfg.TileWidth)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath,
		[]byte("PREDICTION_API_KEY=from-dotenv\nPREDICTION_USERNAME=alice\n"), 0o644))

	cfg, err := Load(Options{EnvFile: envPath})
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.APIKey)
	assert.Equal(t, "alice", cfg.Username)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	t.Setenv("PREDICTION_API_KEY", "from-env")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("PREDICTION_API_KEY=from-dotenv\n"), 0o644))

	cfg, err := Load(Options{EnvFile: envPath})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
}

const sampleProfiles = `
endpoints:
  staging:
    api_url: https://staging.example.com/predict
    mode: binary
    endpoint: /detect
    tile_width: 640
  production:
    api_url: https://prod.example.com/predict
`

func writeProfiles(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cv-ninja.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleProfiles), 0o644))
	return path
}

func TestLoad_Profile(t *testing.T) {
	cfg, err := Load(Options{
		EnvFile:    devNullEnv(t),
		ConfigFile: writeProfiles(t),
		Profile:    "staging",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.com/predict", cfg.APIURL)
	assert.Equal(t, ModeBinary, cfg.Mode)
	assert.Equal(t, "/detect", cfg.Endpoint)
	assert.Equal(t, 640, cfg.TileWidth)
	// Values the profile does not mention keep their defaults.
	assert.Equal(t, tiling.DefaultOverlap, cfg.Overlap)
}

func TestLoad_ProfileOverridesEnvironment(t *testing.T) {
	t.Setenv("PREDICTION_API_URL", "https://env.example.com")

	cfg, err := Load(Options{
		EnvFile:    devNullEnv(t),
		ConfigFile: writeProfiles(t),
		Profile:    "production",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://prod.example.com/predict", cfg.APIURL)
}

func TestLoad_UnknownProfile(t *testing.T) {
	_, err := Load(Options{
		EnvFile:    devNullEnv(t),
		ConfigFile: writeProfiles(t),
		Profile:    "nope",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `profile "nope" not found`)
	assert.Contains(t, err.Error(), "staging")
}

func TestLoad_FlagsWinOverEverything(t *testing.T) {
	t.Setenv("PREDICTION_TILE_WIDTH", "512")

	cfg, err := Load(Options{
		EnvFile:    devNullEnv(t),
		ConfigFile: writeProfiles(t),
		Profile:    "staging",
		Flags: map[string]any{
			"api_url":    "https://flag.example.com",
			"tile_width": 256,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com", cfg.APIURL)
	assert.Equal(t, 256, cfg.TileWidth)
}

func TestLoad_InvalidMode(t *testing.T) {
	_, err := Load(Options{
		EnvFile: devNullEnv(t),
		Flags:   map[string]any{"mode": "ftp"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestLoad_InvalidAuthType(t *testing.T) {
	_, err := Load(Options{
		EnvFile: devNullEnv(t),
		Flags:   map[string]any{"auth_type": "magic"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid auth_type")
}

func TestConfigTiling(t *testing.T) {
	cfg := Config{TileWidth: 100, TileHeight: 200, Overlap: 16, IoUThreshold: 0.4}
	assert.Equal(t, tiling.Options{
		TileWidth:    100,
		TileHeight:   200,
		Overlap:      16,
		IoUThreshold: 0.4,
	}, cfg.Tiling())
}

// devNullEnv pins the .env source to an empty file so tests do not pick up a
// developer's real .env from a parent directory.
func devNullEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}
