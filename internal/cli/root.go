package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skyload/skyload/internal/config"
	"github.com/skyload/skyload/internal/logging"
	"github.com/skyload/skyload/pkg/skyload"
)

var rootCmd = &cobra.Command{
	Use:   "skyload",
	Short: "Bulk loader for astronomical survey catalogs",
	Long: `skyload reads a CSV export of a photometric/spectroscopic sky survey and
loads it into a normalized PostgreSQL schema:

  class -> celestial_object -> photometric_reading
                            -> spectroscopic_reading

Tables are written parents first, in committed batches, with lookup maps
rebuilt from the committed parent rows before each dependent table.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed or lost
  20 - Dataset malformed or missing required columns
  21 - Schema (DDL) error
  22 - Unresolved class or object reference
  23 - Constraint violation`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	// -h belongs to --host, so help gets no shorthand.
	rootCmd.PersistentFlags().Bool("help", false, "Help for skyload")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("config", "",
		"Path to the project file (default: ./"+config.ConfigFileName+")")
	rootCmd.PersistentFlags().String("log-format", "",
		"Log format: text|json (default: text, or log.format in "+config.ConfigFileName+")")
	rootCmd.PersistentFlags().String("log-level", "",
		"Log level for structured logs: debug|info|warn|error")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// newLogger builds the console logger, or a zap logger when a structured
// format or level is requested by flag or project file. The returned func
// flushes buffered entries.
func newLogger(cmd *cobra.Command, projectCfg *config.ProjectConfig) (skyload.Logger, func(), error) {
	verbose := getVerboseFlag(cmd)

	format := getStringFlag(cmd, "log-format")
	level := getStringFlag(cmd, "log-level")
	if projectCfg != nil {
		if format == "" {
			format = projectCfg.Log.Format
		}
		if level == "" {
			level = projectCfg.Log.Level
		}
	}

	parsed, err := logging.ParseFormat(format)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", err, skyload.ErrInvalidConfig)
	}
	if parsed == logging.FormatText && level == "" {
		return logging.NewConsoleLogger(verbose), func() {}, nil
	}

	if level == "" && verbose {
		level = string(logging.LogLevelDebug)
	}
	zl, err := logging.NewZapLogger(parsed, logging.LogLevel(level))
	if err != nil {
		return nil, nil, err
	}
	return zl, func() { _ = zl.Sync() }, nil
}
