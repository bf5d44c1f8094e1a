package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Counter.DefaultGoal)

	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[counter]
default-goal = 1080
notify = false
sort = "reads"

[stats]
timezone = "UTC"

[storage]
db-path = "/tmp/mantra.db"

[log]
level = "debug"
file = "/tmp/mantra.log"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Counter.DefaultGoal)
	assert.Equal(t, 1080, *cfg.Counter.DefaultGoal)
	require.NotNil(t, cfg.Counter.Notify)
	assert.False(t, *cfg.Counter.Notify)
	require.NotNil(t, cfg.Counter.Sort)
	assert.Equal(t, "reads", *cfg.Counter.Sort)
	assert.Equal(t, "UTC", *cfg.Stats.Timezone)
	assert.Equal(t, "/tmp/mantra.db", *cfg.Storage.DBPath)
	assert.Equal(t, "debug", *cfg.Log.Level)
	assert.Equal(t, "/tmp/mantra.log", *cfg.Log.File)

	out, err := Encode(cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "default-goal = 1080")
	assert.Contains(t, out, `db-path = "/tmp/mantra.db"`)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[counter\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	loc, err := Location("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = Location("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = Location("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")

	assert.Equal(t, filepath.Join("/cfg", "mantra", "config.toml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join("/cfg", "mantra", ".env"), DefaultEnvPath())
	assert.Equal(t, filepath.Join("/data", "mantra", "mantra.db"), DefaultDBPath())
	assert.Equal(t, filepath.Join("/state", "mantra", "mantra.log"), DefaultLogPath())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDBPath, "/env/mantra.db")
	t.Setenv(EnvTimezone, "Europe/Berlin")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFile, "")
	t.Setenv(EnvNotify, "false")
	t.Setenv(EnvGoal, "not-a-number")
	t.Setenv(EnvSort, "title")

	goal := 108
	cfg := FileConfig{Counter: CounterConfig{DefaultGoal: &goal}}
	ApplyEnv(&cfg)

	assert.Equal(t, "/env/mantra.db", *cfg.Storage.DBPath)
	assert.Equal(t, "Europe/Berlin", *cfg.Stats.Timezone)
	assert.Equal(t, "warn", *cfg.Log.Level)
	assert.Nil(t, cfg.Log.File)
	require.NotNil(t, cfg.Counter.Notify)
	assert.False(t, *cfg.Counter.Notify)
	assert.Equal(t, 108, *cfg.Counter.DefaultGoal)
	assert.Equal(t, "title", *cfg.Counter.Sort)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "missing.env")
	second := filepath.Join(dir, "app.env")
	require.NoError(t, os.WriteFile(second, []byte("MANTRA_TEST_VALUE=from-file\n"), 0o644))
	t.Setenv("MANTRA_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("MANTRA_TEST_VALUE"))

	loaded, err := LoadEnv([]string{first, second})
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
	assert.Equal(t, "from-file", os.Getenv("MANTRA_TEST_VALUE"))

	loaded, err = LoadEnv([]string{first})
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
