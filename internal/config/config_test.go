package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/model"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "whisp.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "http://localhost:8085", cfg.GEE.BaseURL)
	assert.Equal(t, 120, cfg.GEE.TimeoutSecs)
	assert.InDelta(t, 5.0, cfg.GEE.RequestsPerSec, 0.001)
	assert.Equal(t, 3, cfg.GEE.RetryMaxAttempts)
	assert.Equal(t, 5, cfg.GEE.BreakerFailures)
	assert.Equal(t, 30, cfg.GEE.BreakerResetSecs)
	assert.Equal(t, "ha", cfg.Analysis.OutputUnit)
	assert.Equal(t, 500, cfg.Analysis.PageThreshold)
	assert.InDelta(t, 10.0, cfg.Analysis.Thresholds.TreeCover, 0.001)
	assert.InDelta(t, 10.0, cfg.Analysis.Thresholds.Commodities, 0.001)
	assert.InDelta(t, 0.0, cfg.Analysis.Thresholds.DisturbanceBefore, 0.001)
	assert.InDelta(t, 0.0, cfg.Analysis.Thresholds.DisturbanceAfter, 0.001)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/whisp
analysis:
  output_unit: percent
  page_threshold: 250
  thresholds:
    tree_cover: 25
log:
  level: debug
  format: console
server:
  port: 9000
`
	require.NoError(t, os.WriteFile(filepath.Join(".", "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/whisp", cfg.Store.DatabaseURL)
	assert.Equal(t, "percent", cfg.Analysis.OutputUnit)
	assert.Equal(t, 250, cfg.Analysis.PageThreshold)
	assert.InDelta(t, 25.0, cfg.Analysis.Thresholds.TreeCover, 0.001)
	// Unset thresholds keep their defaults.
	assert.InDelta(t, 10.0, cfg.Analysis.Thresholds.Commodities, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	chTempDir(t)

	t.Setenv("WHISP_STORE_DRIVER", "postgres")
	t.Setenv("WHISP_SERVER_PORT", "8443")
	t.Setenv("WHISP_ANALYSIS_OUTPUT_UNIT", "percent")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, model.OutputPercent, cfg.Analysis.Unit())
}

func TestThresholdsConversion(t *testing.T) {
	tc := ThresholdsConfig{TreeCover: 15, Commodities: 20, DisturbanceBefore: 1, DisturbanceAfter: 2}
	th := tc.Thresholds()

	assert.InDelta(t, 15.0, th.TreeCover, 0.001)
	assert.InDelta(t, 20.0, th.Commodities, 0.001)
	assert.InDelta(t, 1.0, th.DisturbanceBefore, 0.001)
	assert.InDelta(t, 2.0, th.DisturbanceAfter, 0.001)
	assert.NoError(t, th.Validate())
}

func TestAnalysisUnitDefaultsToHectares(t *testing.T) {
	assert.Equal(t, model.OutputHectares, AnalysisConfig{OutputUnit: "ha"}.Unit())
	assert.Equal(t, model.OutputHectares, AnalysisConfig{OutputUnit: "acres"}.Unit())
	assert.Equal(t, model.OutputPercent, AnalysisConfig{OutputUnit: "percent"}.Unit())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}
