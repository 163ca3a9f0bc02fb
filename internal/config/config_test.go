package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultDB, cfg.DB)
	assert.Empty(t, cfg.APIURL)
	assert.False(t, cfg.UseAPI())
	assert.Zero(t, cfg.APIRPS)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnvValues(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		EnvDB:       " postgres://localhost/phaseforge ",
		EnvAPIURL:   "https://api.example.test",
		EnvAPIRPS:   "2.5",
		EnvOwner:    "u1",
		EnvLogLevel: "DEBUG",
	}))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/phaseforge", cfg.DB)
	assert.True(t, cfg.UseAPI())
	assert.Equal(t, 2.5, cfg.APIRPS)
	assert.Equal(t, "u1", cfg.Owner)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromEnvRejects(t *testing.T) {
	_, err := FromEnv(env(map[string]string{EnvAPIRPS: "fast"}))
	assert.ErrorContains(t, err, EnvAPIRPS)

	_, err = FromEnv(env(map[string]string{EnvAPIRPS: "-1"}))
	assert.ErrorContains(t, err, EnvAPIRPS)

	_, err = FromEnv(env(map[string]string{EnvLogLevel: "chatty"}))
	assert.ErrorContains(t, err, `unknown log level "chatty"`)
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PHASEFORGE_OWNER=from-file\nPHASEFORGE_DB=file.db\n"), 0o644))

	t.Setenv(EnvDB, "env.db")
	t.Setenv(EnvOwner, "")
	require.NoError(t, os.Unsetenv(EnvOwner))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DB, "environment wins over the file")
	assert.Equal(t, "from-file", cfg.Owner)
}

func TestLoadIgnoresMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
