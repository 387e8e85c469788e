package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyload/skyload/pkg/skyload"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the target schema",
}

type schemaInitFlagValues struct {
	connectionFlags

	schemaMode string
	timeout    time.Duration
}

var schemaInitFlags schemaInitFlagValues

var schemaInitCmd = newSchemaInitCmd(&schemaInitFlags)

func init() {
	schemaCmd.AddCommand(schemaInitCmd)
	rootCmd.AddCommand(schemaCmd)
}

func newSchemaInitCmd(f *schemaInitFlagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the target tables without loading data",
		Long: `Init creates class, celestial_object, photometric_reading and
spectroscopic_reading with their keys and foreign keys.

With --schema-mode create (default) existing tables are kept, provided they
have the expected columns. With --schema-mode recreate all four tables are
dropped first.

Examples:
  skyload schema init -d sky
  skyload schema init -d sky --schema-mode recreate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaInit(cmd, *f)
		},
	}

	registerConnectionFlags(cmd, &f.connectionFlags)
	cmd.Flags().StringVar(&f.schemaMode, "schema-mode", string(skyload.SchemaModeCreate),
		"Schema handling: create (keep existing tables) | recreate (drop and create)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute,
		"Timeout for the operation. Zero disables the timeout")

	return cmd
}

func runSchemaInit(cmd *cobra.Command, f schemaInitFlagValues) error {
	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}

	logger, flush, err := newLogger(cmd, projectCfg)
	if err != nil {
		return err
	}
	defer flush()

	resolved, err := resolveConnectionFromFlags(f.connectionFlags, projectCfg)
	if err != nil {
		return err
	}
	logConnectionVerbose(logger, resolved.ConnConfig, "")

	modeName := f.schemaMode
	if !cmd.Flags().Changed("schema-mode") && projectCfg != nil && projectCfg.Load.SchemaMode != "" {
		modeName = projectCfg.Load.SchemaMode
	}
	mode, err := skyload.ParseSchemaMode(modeName)
	if err != nil {
		return err
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, f.timeout)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeout, "schema init")
	defer cancel()

	if err := newLoadService(logger).InitSchema(ctx, resolved.ConnConfig, mode); err != nil {
		return fmt.Errorf("schema init failed: %w", err)
	}
	return nil
}
