package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/skyload/skyload/internal/config"
	"github.com/skyload/skyload/internal/db"
	"github.com/skyload/skyload/pkg/skyload"
)

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	username       string
	database       string
	sslMode        string
	sslCert        string
	sslKey         string
	sslRootCert    string
	aws            bool
	awsRegion      string
	azure          bool
	azureTenantID  string
	azureClientID  string
	google         bool
	googleInstance string
}

// registerConnectionFlags binds the connection flags of cmd to f.
func registerConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	flags := cmd.Flags()

	flags.StringVar(&f.connection, "connection", "",
		"PostgreSQL connection string (URI or key=value format).\n"+
			"Mutually exclusive with granular flags (--host, --port, --username).\n"+
			"Alternative: $SKYLOAD_CONNECTION_STRING or $DATABASE_URL.\n"+
			"Example: postgresql://loader@localhost:5432/sky")

	// Precedence: flag > environment variable > skyload.yaml > default
	flags.StringVarP(&f.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $PGHOST > skyload.yaml > localhost")
	flags.IntVarP(&f.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $PGPORT > skyload.yaml > 5432")
	flags.StringVarP(&f.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER or current OS user)")
	flags.StringVarP(&f.database, "database", "d", "",
		"Target database name (overrides the database of a connection string)")
	flags.StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")
	flags.StringVar(&f.sslCert, "sslcert", "",
		"Client certificate file; enables certificate authentication (or $PGSSLCERT)")
	flags.StringVar(&f.sslKey, "sslkey", "",
		"Client private key file (or $PGSSLKEY)")
	flags.StringVar(&f.sslRootCert, "sslrootcert", "",
		"Root CA file used to verify the server (or $PGSSLROOTCERT)")

	flags.BoolVar(&f.aws, "aws", false,
		"Enable AWS RDS IAM authentication (default credential chain)")
	flags.StringVar(&f.awsRegion, "aws-region", "",
		"AWS region of the RDS instance (overrides $AWS_REGION)")
	flags.BoolVar(&f.azure, "azure", false,
		"Enable Azure Entra ID authentication\n"+
			"Uses DefaultAzureCredential chain (Managed Identity, Azure CLI, etc.)")
	flags.StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	flags.StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
	flags.BoolVar(&f.google, "google", false,
		"Enable Google Cloud SQL IAM authentication")
	flags.StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")
}

// resolvedConnection holds the resolved connection configuration.
type resolvedConnection struct {
	ConnConfig    *skyload.ConnectionConfig
	MaintenanceDB string
}

// resolveConnectionFromFlags resolves connection configuration from flags,
// the environment and the project file.
func resolveConnectionFromFlags(
	flags connectionFlags,
	projectCfg *config.ProjectConfig,
) (*resolvedConnection, error) {
	granularFlags := &db.GranularConnFlags{
		Host:        flags.host,
		Port:        flags.port,
		Username:    flags.username,
		Database:    flags.database,
		SSLMode:     flags.sslMode,
		SSLCert:     flags.sslCert,
		SSLKey:      flags.sslKey,
		SSLRootCert: flags.sslRootCert,
	}

	cloudFlags := &db.CloudFlags{
		AWS:            flags.aws,
		AWSRegion:      flags.awsRegion,
		Azure:          flags.azure,
		AzureTenantID:  flags.azureTenantID,
		AzureClientID:  flags.azureClientID,
		Google:         flags.google,
		GoogleInstance: flags.googleInstance,
	}

	connConfig, maintenanceDB, err := db.ResolveConnectionParams(
		flags.connection, granularFlags, cloudFlags, db.LoadFromEnvironment(), projectCfg)
	if err != nil {
		return nil, err
	}

	return &resolvedConnection{
		ConnConfig:    connConfig,
		MaintenanceDB: maintenanceDB,
	}, nil
}

// loadProjectConfig loads godotenv and the project file.
// A missing default file is not an error; a missing --config file is.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	path := getStringFlag(cmd, "config")
	if path == "" {
		projectCfg, err := config.LoadOptional(config.ConfigFileName)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w: %w", config.ConfigFileName, err, skyload.ErrInvalidConfig)
		}
		return projectCfg, nil
	}

	projectCfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("config file %s not found: %w", path, skyload.ErrInvalidConfig)
		}
		return nil, fmt.Errorf("failed to load %s: %w: %w", path, err, skyload.ErrInvalidConfig)
	}
	return projectCfg, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring skyload.yaml if flag wasn't set.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if projectCfg != nil && projectCfg.Timeout != "" && !cmd.Flags().Changed("timeout") {
		parsed, err := projectCfg.TimeoutDuration()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", err, skyload.ErrInvalidConfig)
		}
		return parsed, nil
	}
	return flagTimeout, nil
}

// logConnectionVerbose logs connection details at verbose level.
func logConnectionVerbose(logger skyload.Logger, connConfig *skyload.ConnectionConfig, maintenanceDB string) {
	logger.Verbose("Connection resolved:")
	logger.Verbose("  Host: %s", connConfig.Host)
	logger.Verbose("  Port: %d", connConfig.Port)
	logger.Verbose("  User: %s", connConfig.Username)
	logger.Verbose("  Target Database: %s", connConfig.Database)
	if maintenanceDB != "" {
		logger.Verbose("  Maintenance Database: %s", maintenanceDB)
	}
	logger.Verbose("  SSL Mode: %s", connConfig.SSLMode)
	if connConfig.SSLCert != "" {
		logger.Verbose("  SSL Cert: %s", connConfig.SSLCert)
	}
	if connConfig.SSLRootCert != "" {
		logger.Verbose("  SSL Root Cert: %s", connConfig.SSLRootCert)
	}
	logger.Verbose("  Auth Method: %s", connConfig.AuthMethod)
}

// commandContext returns a context cancelled by timeout (when positive) or by
// SIGINT/SIGTERM.
func commandContext(timeout time.Duration, action string) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling %s...\n", action)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
