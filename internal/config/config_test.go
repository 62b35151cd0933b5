package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.Log.Level = "debug"
	cfg.Journal.AutoProvisionAccounts = true

	path := filepath.Join(dir, "advisory.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.DataDir, got.DataDir)
	assert.Equal(t, cfg.DBPath, got.DBPath)
	assert.Equal(t, "debug", got.Log.Level)
	assert.True(t, got.Journal.AutoProvisionAccounts)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "advisory.yaml"))
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "ledger.db"), cfg.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Journal.AutoProvisionAccounts, "auto-provisioning defaults off")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ADVISORY_LOG_LEVEL", "warn")
	t.Setenv("ADVISORY_AUTO_PROVISION_ACCOUNTS", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "advisory.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Journal.AutoProvisionAccounts)
}
