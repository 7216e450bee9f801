package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_DefaultsApply(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: "postgres://localhost/test"
zones_path: "zones.yaml"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Patrol thresholds fall back to the defaults when the file is silent.
	assert.Equal(t, 3*time.Second, cfg.Patrol.DwellThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Patrol.CooldownWindow)
	assert.Equal(t, 10, cfg.Patrol.IdentityWindow)
	assert.Equal(t, 0.8, cfg.Patrol.FaceMatchTolerance)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
patrol:
  dwell_threshold: 10s
  cooldown_window: 1m
  face_match_tolerance: 0.6
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Patrol.DwellThreshold)
	assert.Equal(t, time.Minute, cfg.Patrol.CooldownWindow)
	assert.Equal(t, 0.6, cfg.Patrol.FaceMatchTolerance)
	// Untouched values keep their defaults.
	assert.Equal(t, 75.0, cfg.Patrol.MatchDistance)
}

func TestLoadConfig_EnvWins(t *testing.T) {
	path := writeConfig(t, `
patrol:
  dwell_threshold: 10s
`)
	t.Setenv("PATROL_DWELL_THRESHOLD", "7s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.Patrol.DwellThreshold)
}

func TestLoadConfig_RejectsDegenerateThresholds(t *testing.T) {
	path := writeConfig(t, `
patrol:
  dwell_threshold: -1s
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultPatrolConfig()
	require.NoError(t, cfg.Validate())

	cfg.AgreementFraction = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultPatrolConfig()
	cfg.MatchDistance = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultPatrolConfig()
	cfg.IdentityWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultPatrolConfig()
	cfg.FaceMatchTolerance = 0
	assert.Error(t, cfg.Validate())
}
