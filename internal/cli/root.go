// Package cli implements the foldline command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tOgg1/foldline/internal/config"
	"github.com/tOgg1/foldline/internal/logging"
)

// app carries what every subcommand needs once the root command has loaded configuration.
type app struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	logger zerolog.Logger

	configFile string
	dbPath     string
	logLevel   string
	logFormat  string
	jsonOutput bool
	verbose    bool
	metrics    bool

	// registry collects engine metrics for the current command when --metrics is set.
	registry *prometheus.Registry
}

// Execute runs the root command with os arguments.
func Execute(version string) error {
	return newRootCmd(version, os.Stdout, os.Stderr).ExecuteContext(context.Background())
}

func newRootCmd(version string, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "foldline",
		Short: "Fold runs of Matrix membership and state events into summaries",
		Long: `foldline groups consecutive small state events of a Matrix room timeline
(joins, leaves, bans, profile and room-configuration changes) and renders
one-line summaries such as "Alice, Bob, and 3 others joined".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/foldline/config.yaml)")
	flags.StringVar(&a.dbPath, "db", "", "database path (overrides database.path)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (console, json)")
	flags.BoolVar(&a.jsonOutput, "json", false, "emit JSON instead of tables")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "shorthand for --log-level debug")
	flags.BoolVar(&a.metrics, "metrics", false, "print grouping metrics to stderr after the command")

	cmd.AddCommand(
		newSummarizeCmd(a),
		newImportCmd(a),
		newGroupsCmd(a),
		newRoomsCmd(a),
		newRoomCmd(a),
		newViewCmd(a),
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	loader := config.NewLoader()
	if a.configFile != "" {
		loader.SetConfigFile(a.configFile)
	}
	if a.dbPath != "" {
		loader.Set("database.path", a.dbPath)
	}
	if a.logLevel != "" {
		loader.Set("logging.level", a.logLevel)
	}
	if a.verbose {
		loader.Set("logging.level", "debug")
	}
	if a.logFormat != "" {
		loader.Set("logging.format", strings.ToLower(a.logFormat))
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Init(logging.FromConfig(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.EnableCaller, a.stderr))
	a.logger = logging.Component("cli")
	if a.metrics {
		a.registry = prometheus.NewRegistry()
	}
	if used := loader.ConfigFileUsed(); used != "" {
		a.logger.Debug().Str("config", used).Msg("configuration loaded")
	}
	return nil
}

// resolveRoom picks the explicit --room value, then the document's room, then the selected context.
func (a *app) resolveRoom(explicit, fromDocument string) (string, error) {
	if room := strings.TrimSpace(explicit); room != "" {
		return room, nil
	}
	if room := strings.TrimSpace(fromDocument); room != "" {
		return room, nil
	}
	ctx, err := config.NewContextStore(a.cfg.ContextPath()).Load()
	if err != nil {
		return "", err
	}
	if ctx.IsEmpty() {
		return "", fmt.Errorf("no room given: pass --room or select one with 'foldline room use'")
	}
	return ctx.RoomID, nil
}
