// ABOUTME: Tests for configuration loading and persistence
// ABOUTME: Covers XDG paths, defaults, file merging, and environment overrides
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pagen-admin/store"
)

func useTempDataHome(t *testing.T) {
	t.Helper()
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	t.Cleanup(func() { xdg.DataHome = origHome })
}

func TestPath(t *testing.T) {
	useTempDataHome(t)

	assert.True(t, strings.HasPrefix(Path(), xdg.DataHome), "path should be under XDG data home")
	assert.Equal(t, "config.json", filepath.Base(Path()))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	useTempDataHome(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, filepath.Join(xdg.DataHome, AppName, "pagen-admin.db"), cfg.DBPath)
	assert.Equal(t, store.DefaultLatency(), cfg.FixtureLatency)
	assert.Equal(t, "charm.2389.dev", cfg.Charm.Host)
}

func TestSaveAndLoad(t *testing.T) {
	useTempDataHome(t)

	cfg := Default()
	cfg.Backend = BackendFixture
	cfg.ListenAddr = ":9000"
	cfg.Charm.AutoSync = false
	require.NoError(t, cfg.Save(""))

	info, err := os.Stat(Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendFixture, loaded.Backend)
	assert.Equal(t, ":9000", loaded.ListenAddr)
	assert.False(t, loaded.Charm.AutoSync)
}

func TestLoadInvalidFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
}

func TestEnvOverrides(t *testing.T) {
	useTempDataHome(t)
	t.Setenv("PAGEN_ADMIN_BACKEND", "FIXTURE")
	t.Setenv("PAGEN_ADMIN_LOG_LEVEL", "debug")
	t.Setenv("PAGEN_ADMIN_FIXTURE_LATENCY", "0s")
	t.Setenv("PAGEN_ADMIN_CHARM_HOST", "charm.local")
	t.Setenv("PAGEN_ADMIN_CHARM_AUTO_SYNC", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendFixture, cfg.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, store.Latency{}, cfg.FixtureLatency)
	assert.Equal(t, "charm.local", cfg.Charm.Host)
	assert.False(t, cfg.Charm.AutoSync)
}

func TestEnvOverrideBadLatency(t *testing.T) {
	useTempDataHome(t)
	t.Setenv("PAGEN_ADMIN_FIXTURE_LATENCY", "soon")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Backend = "postgres"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Backend = BackendRemote
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.RemoteURL = "http://localhost:8080"
	cfg.RemoteTimeout = time.Second
	assert.NoError(t, cfg.Validate())
}
