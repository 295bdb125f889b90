package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  name: aidecare
  user: app
  password: secret
`)

	cfg, err := Load(path)
	assert.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxUploadSize)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 24*time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, 0.5, cfg.Vision.ConfidenceThreshold)
	assert.Equal(t, 0.7, cfg.Vision.IOUThreshold)
	assert.Equal(t, []string{"glioma", "meningioma", "notumor", "pituitary"}, cfg.Vision.ClassNames)
	assert.Equal(t, 30.0, cfg.Vision.PhysicalWidthCM)
	assert.Equal(t, 256, cfg.Vision.ResolutionPX)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
`)

	t.Setenv("AIDE_DB_HOST", "db.internal")
	t.Setenv("AIDE_SERVER_PORT", "9090")
	t.Setenv("AIDE_LLM_MODEL", "other-model")

	cfg, err := Load(path)
	assert.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "other-model", cfg.LLM.Model)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, Name: "n", User: "u", Password: "p"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", d.DSN())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestCalibrationOverride(t *testing.T) {
	path := writeConfig(t, `
vision:
  physical_width_cm: 25.0
  physical_height_cm: 25.0
  resolution_px: 512
`)

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 25.0, cfg.Vision.PhysicalWidthCM)
	assert.Equal(t, 512, cfg.Vision.ResolutionPX)
}
