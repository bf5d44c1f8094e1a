// Package main provides the CLI entrypoint for mantra.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/mantra/internal/config"
	"github.com/verte-zerg/mantra/internal/counter"
	"github.com/verte-zerg/mantra/internal/logger"
	"github.com/verte-zerg/mantra/internal/model"
	"github.com/verte-zerg/mantra/internal/store"
)

const (
	defaultGoal     = 0
	defaultNotify   = true
	defaultLogLevel = "info"
	defaultSort     = "title"
)

var (
	globalDBPath   string
	globalConfig   string
	globalTimezone string
	globalLogLevel string
	globalLogFile  string
	globalNotify   bool
	globalSort     string
)

// settings is the resolved configuration: flags over environment over file.
type settings struct {
	DBPath      string
	Location    *time.Location
	LogLevel    string
	LogFile     string
	Notify      bool
	DefaultGoal int
	Sort        model.MantraSort
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mantra",
		Short:         "Mantra reading counter",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runCounterCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalDBPath, "db", config.DefaultDBPath(), "database path")
	flags.StringVar(&globalConfig, "config", config.DefaultConfigPath(), "config file path")
	flags.StringVar(&globalTimezone, "timezone", "", "timezone for statistics (default: local)")
	flags.StringVar(&globalLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&globalLogFile, "log-file", "", "append logs to this file")
	flags.BoolVar(&globalNotify, "notify", defaultNotify, "send a desktop notification when a goal is reached")
	flags.StringVar(&globalSort, "sort", defaultSort, "mantra order after favorites (title, reads, position)")
	rootCmd.Flags().StringVar(&counterMantra, "mantra", "", "mantra title or id to open")

	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newFavoriteCmd())
	rootCmd.AddCommand(newAdjustCmd(counter.KindReads, "reads", "Add reads to a mantra"))
	rootCmd.AddCommand(newAdjustCmd(counter.KindRounds, "rounds", fmt.Sprintf("Add rounds of %d reads to a mantra", counter.RoundSize)))
	rootCmd.AddCommand(newAdjustCmd(counter.KindValue, "set", "Set the reads of a mantra"))
	rootCmd.AddCommand(newAdjustCmd(counter.KindGoal, "goal", "Set the goal of a mantra (0 clears it)"))
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newPreloadCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// resolveSettings loads .env, the config file and MANTRA_* variables, then lets
// explicitly set flags win.
func resolveSettings(cmd *cobra.Command) (settings, error) {
	if path, err := config.LoadEnv(config.EnvPaths()); err != nil {
		return settings{}, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	fileCfg, err := config.LoadConfig(globalConfig)
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(&fileCfg)

	applyStringConfig(cmd, "db", &globalDBPath, fileCfg.Storage.DBPath)
	applyStringConfig(cmd, "timezone", &globalTimezone, fileCfg.Stats.Timezone)
	applyStringConfig(cmd, "log-level", &globalLogLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &globalLogFile, fileCfg.Log.File)
	applyBoolConfig(cmd, "notify", &globalNotify, fileCfg.Counter.Notify)
	applyStringConfig(cmd, "sort", &globalSort, fileCfg.Counter.Sort)

	s := settings{
		DBPath:      globalDBPath,
		LogLevel:    globalLogLevel,
		LogFile:     globalLogFile,
		Notify:      globalNotify,
		DefaultGoal: defaultGoal,
	}
	if fileCfg.Counter.DefaultGoal != nil {
		s.DefaultGoal = *fileCfg.Counter.DefaultGoal
	}
	if err := validateSettings(s); err != nil {
		return settings{}, err
	}
	sort, err := model.ParseMantraSort(globalSort)
	if err != nil {
		return settings{}, fmt.Errorf("--sort: %w", err)
	}
	s.Sort = sort
	loc, err := config.Location(globalTimezone)
	if err != nil {
		return settings{}, err
	}
	s.Location = loc
	return s, nil
}

func validateSettings(s settings) error {
	if strings.TrimSpace(s.DBPath) == "" {
		return fmt.Errorf("--db must not be empty")
	}
	if _, err := logger.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	if s.DefaultGoal < 0 || s.DefaultGoal > counter.MaxValue {
		return fmt.Errorf("default goal must be between 0 and %d", counter.MaxValue)
	}
	return nil
}

// setupLogging routes logs to the log file when one is set. Without one,
// interactive screens discard logs and plain commands log to stderr.
func setupLogging(s settings, interactive bool) (io.Closer, error) {
	if s.LogFile != "" {
		closer, err := logger.InitFile(s.LogFile, s.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return closer, nil
	}
	if interactive {
		logger.Discard()
		return nil, nil
	}
	if err := logger.Init(os.Stderr, s.LogLevel); err != nil {
		return nil, err
	}
	return nil, nil
}

// prepare resolves settings, sets up logging and opens the store. The returned
// cleanup closes both.
func prepare(cmd *cobra.Command, interactive bool) (settings, *store.Store, func(), error) {
	s, err := resolveSettings(cmd)
	if err != nil {
		return settings{}, nil, nil, err
	}
	logCloser, err := setupLogging(s, interactive)
	if err != nil {
		return settings{}, nil, nil, err
	}
	st, err := store.Open(s.DBPath)
	if err != nil {
		closeLog(logCloser)
		return settings{}, nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	logger.Debug("store opened", "path", st.Path())
	cleanup := func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("failed to close db", "error", cerr)
		}
		closeLog(logCloser)
	}
	return s, st, cleanup, nil
}

func closeLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logErrf("failed to close log file: %v\n", err)
	}
}

func newConfigCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				return runConfigPrintCmd(cmd)
			}
			return runConfigCmd(cmd)
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the resolved configuration instead of opening the editor")
	return cmd
}

func runConfigPrintCmd(cmd *cobra.Command) error {
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	goal := s.DefaultGoal
	notify := s.Notify
	tz := s.Location.String()
	level := s.LogLevel
	sort := string(s.Sort)
	if s.Sort == model.SortPosition {
		sort = "position"
	}
	resolved := config.FileConfig{
		Counter: config.CounterConfig{DefaultGoal: &goal, Notify: &notify, Sort: &sort},
		Stats:   config.StatsConfig{Timezone: &tz},
		Storage: config.StorageConfig{DBPath: &s.DBPath},
		Log:     config.LogConfig{Level: &level},
	}
	if s.LogFile != "" {
		resolved.Log.File = &s.LogFile
	}
	out, err := config.Encode(resolved)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

func runConfigCmd(_ *cobra.Command) error {
	path := globalConfig
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# mantra configuration
# Uncomment a value to enable it. CLI flags and MANTRA_* variables override config values.

[counter]
# default-goal = %d        # Goal for new mantras (0 means none, max %d)
# notify = %t            # Desktop notification when a goal is reached
# sort = %q            # Mantra order after favorites: title, reads or position

[stats]
# timezone = "local"      # IANA zone used to bucket readings by day

[storage]
# db-path = %q

[log]
# level = %q           # debug, info, warn or error
# file = %q
`,
		defaultGoal,
		counter.MaxValue,
		defaultNotify,
		defaultSort,
		config.DefaultDBPath(),
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
