package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
grouping:
  min_group_size: 4
  max_names_before_coalesce: 2
database:
  path: ` + filepath.Join(dir, "test.db") + `
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Grouping.MinGroupSize)
	require.Equal(t, 2, cfg.Grouping.MaxNamesBeforeCoalesce)
	require.Equal(t, 5, cfg.Grouping.MaxAvatars)
	require.Equal(t, filepath.Join(dir, "test.db"), cfg.DatabasePath())
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FOLDLINE_GROUPING_MIN_GROUP_SIZE", "6")
	t.Setenv("FOLDLINE_GROUPING_CLASSIFY_WORKERS", "3")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grouping:\n  min_group_size: 4\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 6, cfg.Grouping.MinGroupSize)
	require.Equal(t, 3, cfg.Grouping.ClassifyWorkers)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grouping:\n  min_group_size: 0\n"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "min_group_size"))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"max names", func(c *Config) { c.Grouping.MaxNamesBeforeCoalesce = 0 }, "max_names_before_coalesce"},
		{"avatars", func(c *Config) { c.Grouping.MaxAvatars = 0 }, "max_avatars"},
		{"memo", func(c *Config) { c.Grouping.SummaryMemoSize = -1 }, "summary_memo_size"},
		{"workers", func(c *Config) { c.Grouping.ClassifyWorkers = -2 }, "classify_workers"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpandTilde(t *testing.T) {
	home, _ := os.UserHomeDir()
	require.Equal(t, "", expandTilde(""))
	require.Equal(t, home, expandTilde("~"))
	require.Equal(t, filepath.Join(home, "x", "y"), expandTilde("~/x/y"))
	require.Equal(t, "/abs", expandTilde("/abs"))
}

func TestDatabasePathDefault(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, filepath.Join(cfg.Global.DataDir, "foldline.db"), cfg.DatabasePath())
	require.Equal(t, filepath.Join(cfg.Global.ConfigDir, "context.yaml"), cfg.ContextPath())
}

func TestEnvName(t *testing.T) {
	require.Equal(t, "FOLDLINE_DATABASE_BUSY_TIMEOUT_MS", envName("database.busy_timeout_ms"))
}

func TestDefaultValuesCoverEveryKey(t *testing.T) {
	keys := defaultValues(DefaultConfig())
	require.Len(t, keys, 14)
	require.Equal(t, 3, keys["grouping.min_group_size"])
}
