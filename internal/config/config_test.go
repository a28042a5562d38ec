package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.HTTPAddr())
	assert.Equal(t, int64(10<<20), cfg.HTTP.MaxUploadBytes)
	assert.Equal(t, int64(178956970), cfg.HTTP.MaxImagePixels)
	assert.Equal(t, filepath.Join("models", "diseases.onnx"), cfg.Models.Path(cfg.Models.Disease))
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)

	configPath := filepath.Join(dir, "config.toml")
	content := `
[app]
name = "melon-test"
port = 9090

[models]
dir = "/srv/models"
shape = "/opt/shape.onnx"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("APP_PORT", "9191")
	t.Setenv("HTTP_MAX_UPLOAD_BYTES", "1024")
	t.Setenv("HTTP_MAX_IMAGE_PIXELS", "4096")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "melon-test", cfg.App.Name)
	assert.Equal(t, 9191, cfg.App.Port)
	assert.Equal(t, int64(1024), cfg.HTTP.MaxUploadBytes)
	assert.Equal(t, int64(4096), cfg.HTTP.MaxImagePixels)
	assert.Equal(t, "/opt/shape.onnx", cfg.Models.Path(cfg.Models.Shape))
	assert.Equal(t, "/srv/models/spot_model.onnx", cfg.Models.Path(cfg.Models.Spot))
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("LOG_LEVEL=warn\n"), 0o644))
	t.Setenv("ENV_FILE", envPath)
	// t.Setenv restores the previous value; the unset lets godotenv fill it.
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestBadEnvIntFallsBack(t *testing.T) {
	isolate(t)
	t.Setenv("APP_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.App.Port)
}
