// Package config handles foldline configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tOgg1/foldline/internal/logging"
)

// Config is the root configuration structure for foldline.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Grouping limits for the timeline engine
	Grouping GroupingConfig `yaml:"grouping" mapstructure:"grouping"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where foldline stores its data (default: ~/.local/share/foldline).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/foldline).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// GroupingConfig contains the engine limits.
type GroupingConfig struct {
	// MinGroupSize is the shortest run of small state events that folds into a group.
	MinGroupSize int `yaml:"min_group_size" mapstructure:"min_group_size"`

	// MaxNamesBeforeCoalesce is how many names a summary lists before "and N others".
	MaxNamesBeforeCoalesce int `yaml:"max_names_before_coalesce" mapstructure:"max_names_before_coalesce"`

	// MaxAvatars bounds the avatar list per group.
	MaxAvatars int `yaml:"max_avatars" mapstructure:"max_avatars"`

	// SummaryMemoSize is how many rendered summaries survive across rebuilds (0 disables).
	SummaryMemoSize int `yaml:"summary_memo_size" mapstructure:"summary_memo_size"`

	// ClassifyWorkers > 1 classifies large timelines in parallel (0 = sequential).
	ClassifyWorkers int `yaml:"classify_workers" mapstructure:"classify_workers"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeout is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains viewer settings.
type TUIConfig struct {
	// ExpandAll starts the viewer with every group unfolded.
	ExpandAll bool `yaml:"expand_all" mapstructure:"expand_all"`

	// ShowEventIDs appends event ids to expanded rows.
	ShowEventIDs bool `yaml:"show_event_ids" mapstructure:"show_event_ids"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "foldline"),
			ConfigDir: filepath.Join(homeDir, ".config", "foldline"),
		},
		Grouping: GroupingConfig{
			MinGroupSize:           3,
			MaxNamesBeforeCoalesce: 4,
			MaxAvatars:             5,
			SummaryMemoSize:        512,
			ClassifyWorkers:        0,
		},
		Database: DatabaseConfig{
			Path:          "", // Will be set to DataDir/foldline.db
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		TUI: TUIConfig{
			ExpandAll:    false,
			ShowEventIDs: false,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Grouping.MinGroupSize < 1 {
		return fmt.Errorf("grouping.min_group_size must be at least 1")
	}
	if c.Grouping.MaxNamesBeforeCoalesce < 1 {
		return fmt.Errorf("grouping.max_names_before_coalesce must be at least 1")
	}
	if c.Grouping.MaxAvatars < 1 {
		return fmt.Errorf("grouping.max_avatars must be at least 1")
	}
	if c.Grouping.SummaryMemoSize < 0 {
		return fmt.Errorf("grouping.summary_memo_size must not be negative")
	}
	if c.Grouping.ClassifyWorkers < 0 {
		return fmt.Errorf("grouping.classify_workers must not be negative")
	}
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch c.Logging.Format {
	case "console", "json":
		// ok
	default:
		return fmt.Errorf("logging.format must be one of console, json")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "foldline.db")
}

// ContextPath returns where the selected-room context is kept.
func (c *Config) ContextPath() string {
	return filepath.Join(c.Global.ConfigDir, "context.yaml")
}
