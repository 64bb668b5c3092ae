package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.BackendPostgres, cfg.DataBackend)
	assert.Equal(t, config.LockLocal, cfg.LockBackend)
	assert.Equal(t, 500, cfg.ProviderPageSize)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialBackoff)
}

func TestLoad_EnvironmentWinsOverDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9090\nLOG_LEVEL=debug\n"), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("DATA_BACKEND", "mongo")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_BACKEND")
}
