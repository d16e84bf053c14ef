package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, "continue", cfg.Loop.OnError)
	require.Equal(t, filepath.Join("/data", "taskutils", "journal.db"), cfg.Journal.Path)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `log:
  level: debug
  format: json
loop:
  on_error: stop
sequences:
  dirs:
    - /opt/sequences
journal:
  path: /tmp/journal.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("TASKUTILS_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "stop", cfg.Loop.OnError)
	require.Equal(t, []string{"/opt/sequences"}, cfg.Sequences.Dirs)
	require.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loop:\n  on_error: explode\n"), 0644))

	_, err := Load(path)
	require.ErrorContains(t, err, "loop.on_error")
}

func TestDefaultConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	require.Equal(t, "/custom/config/taskutils", DefaultConfigDir())

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "taskutils"), DefaultConfigDir())
}
