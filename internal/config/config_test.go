package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
scan:
  concurrency: 3
  rule_timeout: 5s
  filter: language == "rust"
sandbox:
  max_steps: 1000
ingest:
  skip_validation: true
templates:
  dir: rules
`), 0o644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Scan.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Scan.RuleTimeout)
	assert.Equal(t, `language == "rust"`, cfg.Scan.Filter)
	assert.Equal(t, uint64(1000), cfg.Sandbox.MaxSteps)
	assert.True(t, cfg.Ingest.SkipValidation)
	assert.Equal(t, "rules", cfg.Templates.Dir)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RADAR_LOG_LEVEL", "trace")
	t.Setenv("RADAR_SCAN_CONCURRENCY", "8")
	t.Setenv("RADAR_SCAN_RULE_TIMEOUT", "250ms")
	t.Setenv("RADAR_SANDBOX_MAX_STEPS", "42")
	t.Setenv("RADAR_INGEST_SKIP_VALIDATION", "true")
	t.Setenv("RADAR_TEMPLATES_DIR", "/opt/rules")
	t.Setenv("RADAR_SCAN_FILTER", "severity_rank > 2")

	cfg, err := Load("", false)
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Scan.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Scan.RuleTimeout)
	assert.Equal(t, uint64(42), cfg.Sandbox.MaxSteps)
	assert.True(t, cfg.Ingest.SkipValidation)
	assert.Equal(t, "/opt/rules", cfg.Templates.Dir)
	assert.Equal(t, "severity_rank > 2", cfg.Scan.Filter)
}

func TestLoad_BadValues(t *testing.T) {
	t.Setenv("RADAR_SCAN_CONCURRENCY", "many")
	_, err := Load("", false)
	assert.Error(t, err)

	os.Unsetenv("RADAR_SCAN_CONCURRENCY")
	path := filepath.Join(t.TempDir(), "radar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan: [1, 2"), 0o644))
	_, err = Load(path, true)
	assert.Error(t, err)
}
