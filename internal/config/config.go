// Package config loads taskutils configuration from file, environment and
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TASKUTILS_LOG_LEVEL.
const EnvPrefix = "TASKUTILS"

// Config is the full taskutils configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Loop      LoopConfig      `mapstructure:"loop"`
	Sequences SequencesConfig `mapstructure:"sequences"`
	Journal   JournalConfig   `mapstructure:"journal"`
}

// LogConfig controls process logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error, off.
	Level string `mapstructure:"level"`

	// Format is "console" or "json".
	Format string `mapstructure:"format"`
}

// LoopConfig controls the event loop.
type LoopConfig struct {
	// OnError is "continue" or "stop".
	OnError string `mapstructure:"on_error"`
}

// SequencesConfig controls where definitions are found.
type SequencesConfig struct {
	// Dirs are searched after the project and user directories.
	Dirs []string `mapstructure:"dirs"`
}

// JournalConfig controls the event journal.
type JournalConfig struct {
	// Path is the sqlite file. Empty disables the journal.
	Path string `mapstructure:"path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Loop: LoopConfig{
			OnError: "continue",
		},
		Journal: JournalConfig{
			Path: filepath.Join(DefaultDataDir(), "journal.db"),
		},
	}
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/taskutils or ~/.config/taskutils.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskutils")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".taskutils")
	}
	return filepath.Join(home, ".config", "taskutils")
}

// DefaultDataDir returns $XDG_DATA_HOME/taskutils or ~/.local/share/taskutils.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskutils")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".taskutils")
	}
	return filepath.Join(home, ".local", "share", "taskutils")
}

// Load reads configuration. An explicit path must exist; without one,
// config.yaml in DefaultConfigDir is used when present. Environment
// variables override the file and the file overrides defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("loop.on_error", cfg.Loop.OnError)
	v.SetDefault("sequences.dirs", cfg.Sequences.Dirs)
	v.SetDefault("journal.path", cfg.Journal.Path)
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format %q (expected console or json)", c.Log.Format)
	}

	switch strings.ToLower(c.Loop.OnError) {
	case "continue", "stop":
	default:
		return fmt.Errorf("invalid loop.on_error %q (expected continue or stop)", c.Loop.OnError)
	}

	return nil
}
