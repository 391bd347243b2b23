package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FOLDLINE_GROUPING_MIN_GROUP_SIZE.
const EnvPrefix = "FOLDLINE"

// Loader resolves configuration with precedence defaults < config file < env < Set.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// SetConfigFile sets an explicit config file path. A missing explicit file is an error.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Set overrides a key. Used for CLI flags.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the config file that was loaded, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load resolves, expands and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.configure(defaultValues(cfg))

	if err := l.readConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Global.DataDir = expandTilde(cfg.Global.DataDir)
	cfg.Global.ConfigDir = expandTilde(cfg.Global.ConfigDir)
	cfg.Database.Path = expandTilde(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// defaultValues flattens cfg into viper keys. Every key listed here is also bound to an
// environment variable.
func defaultValues(cfg *Config) map[string]any {
	return map[string]any{
		"global.data_dir":   cfg.Global.DataDir,
		"global.config_dir": cfg.Global.ConfigDir,

		"grouping.min_group_size":            cfg.Grouping.MinGroupSize,
		"grouping.max_names_before_coalesce": cfg.Grouping.MaxNamesBeforeCoalesce,
		"grouping.max_avatars":               cfg.Grouping.MaxAvatars,
		"grouping.summary_memo_size":         cfg.Grouping.SummaryMemoSize,
		"grouping.classify_workers":          cfg.Grouping.ClassifyWorkers,

		"database.path":            cfg.Database.Path,
		"database.busy_timeout_ms": cfg.Database.BusyTimeoutMs,

		"logging.level":         cfg.Logging.Level,
		"logging.format":        cfg.Logging.Format,
		"logging.enable_caller": cfg.Logging.EnableCaller,

		"tui.expand_all":     cfg.TUI.ExpandAll,
		"tui.show_event_ids": cfg.TUI.ShowEventIDs,
	}
}

func (l *Loader) configure(defaults map[string]any) {
	v := l.v
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range searchPaths() {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		v.SetDefault(key, defaults[key])
		// Unmarshal only sees env values for explicitly bound keys.
		_ = v.BindEnv(key, envName(key))
	}
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func searchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "foldline"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "foldline"))
	}
	return append(paths, ".")
}

func (l *Loader) readConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
		return l.v.ReadInConfig()
	}

	err := l.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// expandTilde expands a leading ~ to the user's home directory.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration from the default search paths.
func LoadDefault() (*Config, error) {
	return NewLoader().Load()
}
