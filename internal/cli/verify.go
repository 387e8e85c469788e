package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyload/skyload/pkg/skyload"
)

type verifyFlagValues struct {
	connectionFlags

	timeout time.Duration
}

var verifyFlags verifyFlagValues

var verifyCmd = newVerifyCmd(&verifyFlags)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func newVerifyCmd(f *verifyFlagValues) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report row counts and orphaned references",
		Long: `Verify counts the rows of every target table and, for each foreign key,
the dependent rows whose parent is missing.

Exits with code 23 when any orphaned row is found.

Example:
  skyload verify -d sky`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, *f)
		},
	}

	registerConnectionFlags(cmd, &f.connectionFlags)
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute,
		"Timeout for the operation. Zero disables the timeout")

	return cmd
}

func runVerify(cmd *cobra.Command, f verifyFlagValues) error {
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

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, f.timeout)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeout, "verify")
	defer cancel()

	report, err := newLoadService(logger).Verify(ctx, resolved.ConnConfig)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	printIntegrityReport(cmd.OutOrStdout(), report)
	if !report.OK() {
		return fmt.Errorf("%d orphaned rows found: %w", report.Orphans(), skyload.ErrConstraintViolation)
	}
	return nil
}
