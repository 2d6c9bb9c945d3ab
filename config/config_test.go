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

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  development: false\n"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Mode)
	assert.Equal(t, 100, cfg.Engine.MaxRounds)
	assert.Equal(t, 0.4, cfg.Engine.CritCap)
	assert.Equal(t, 0.5, cfg.Engine.DodgeCap)
	assert.Equal(t, uint64(1), cfg.Engine.Seed)
	assert.Equal(t, time.Hour, cfg.Database.MySQLMaxLife)
	assert.False(t, cfg.Log.Development)
	assert.Zero(t, cfg.Runner.WatchInterval)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  mode: sqlite
  sqlite_path: /tmp/x.db
engine:
  max_rounds: 20
  strict_invariants: true
runner:
  suite_dir: ./cases
  record_results: true
  watch_interval: 30s
`))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 20, cfg.Engine.MaxRounds)
	assert.True(t, cfg.Engine.StrictInvariants)
	assert.Equal(t, "./cases", cfg.Runner.SuiteDir)
	assert.True(t, cfg.Runner.RecordResults)
	assert.Equal(t, 30*time.Second, cfg.Runner.WatchInterval)

	c := cfg.Engine.Calc()
	assert.Equal(t, 0.4, c.CritCap)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 100, cfg.Engine.MaxRounds)
	assert.Equal(t, "battlerunner:", cfg.Cache.KeyPrefix)
}
