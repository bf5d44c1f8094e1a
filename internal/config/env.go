package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvDBPath   = "MANTRA_DB_PATH"
	EnvTimezone = "MANTRA_TIMEZONE"
	EnvLogLevel = "MANTRA_LOG_LEVEL"
	EnvLogFile  = "MANTRA_LOG_FILE"
	EnvNotify   = "MANTRA_NOTIFY"
	EnvGoal     = "MANTRA_DEFAULT_GOAL"
	EnvSort     = "MANTRA_SORT"
)

// EnvPaths returns the .env locations checked by LoadEnv, in order.
func EnvPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	paths = append(paths, DefaultEnvPath())
	return paths
}

// LoadEnv loads the first existing .env file. Variables already set in the
// process environment win. It returns the loaded path, or "" when none exists.
func LoadEnv(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", nil
}

// ApplyEnv overrides cfg fields with MANTRA_* environment variables.
// Malformed numeric and boolean values are ignored.
func ApplyEnv(cfg *FileConfig) {
	if v, ok := getEnvString(EnvDBPath); ok {
		cfg.Storage.DBPath = &v
	}
	if v, ok := getEnvString(EnvTimezone); ok {
		cfg.Stats.Timezone = &v
	}
	if v, ok := getEnvString(EnvLogLevel); ok {
		cfg.Log.Level = &v
	}
	if v, ok := getEnvString(EnvLogFile); ok {
		cfg.Log.File = &v
	}
	if v, ok := getEnvString(EnvSort); ok {
		cfg.Counter.Sort = &v
	}
	if v, ok := getEnvBool(EnvNotify); ok {
		cfg.Counter.Notify = &v
	}
	if v, ok := getEnvInt(EnvGoal); ok {
		cfg.Counter.DefaultGoal = &v
	}
}

func getEnvString(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	return value, value != ""
}

func getEnvBool(key string) (bool, bool) {
	value, ok := getEnvString(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false
	}
	return b, true
}

func getEnvInt(key string) (int, bool) {
	value, ok := getEnvString(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}
