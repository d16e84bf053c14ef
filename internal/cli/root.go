// Package cli implements the taskutils command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/opencode-ai/taskutils/internal/config"
	"github.com/opencode-ai/taskutils/internal/db"
	"github.com/opencode-ai/taskutils/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile        string
	logLevel       string
	logFormat      string
	jsonOutput     bool
	jsonlOutput    bool
	noColor        bool
	noProgress     bool
	noJournal      bool
	nonInteractive bool

	appConfig *config.Config
	logger    = logging.Component("cli")
)

var rootCmd = &cobra.Command{
	Use:   "taskutils",
	Short: "Run timed action sequences and counted loops",
	Long: `taskutils runs sequences of actions, waits and mode switches on a
single-threaded event loop, and repeats single actions on a fixed delay.

Runs are recorded in a local journal that can be inspected with
"taskutils events".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/taskutils/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error, off")
	flags.StringVar(&logFormat, "log-format", "", "log format: console or json")
	flags.BoolVar(&jsonOutput, "json", false, "output JSON")
	flags.BoolVar(&jsonlOutput, "jsonl", false, "output JSON lines")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&noProgress, "no-progress", false, "disable progress output")
	flags.BoolVar(&noJournal, "no-journal", false, "do not record runs in the journal")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; fail on missing input")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	appConfig = cfg
	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	logger = logging.Component("cli")
	logger.Debug().
		Str("config", cfgFile).
		Str("journal", cfg.Journal.Path).
		Msg("configuration loaded")
	return nil
}

// GetConfig returns the loaded configuration, or nil before a command runs.
func GetConfig() *config.Config {
	return appConfig
}

// openDatabase opens and migrates the journal. It returns nil when the
// journal is disabled.
func openDatabase() (*db.DB, error) {
	cfg := GetConfig()
	if noJournal || cfg == nil || strings.TrimSpace(cfg.Journal.Path) == "" {
		return nil, nil
	}

	database, err := db.Open(cfg.Journal.Path)
	if err != nil {
		return nil, &PreflightError{
			Message:  fmt.Sprintf("failed to open journal: %v", err),
			Hint:     "Check journal.path in your config, or pass --no-journal",
			NextStep: "taskutils run --no-journal <sequence>",
		}
	}
	if _, err := database.MigrateUp(context.Background()); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return database, nil
}
