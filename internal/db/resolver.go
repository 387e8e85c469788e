package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/skyload/skyload/internal/config"
	"github.com/skyload/skyload/pkg/skyload"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is not a flag. Use $PGPASSWORD, ~/.pgpass or a connection string.
type GranularConnFlags struct {
	Host        string
	Port        int
	Username    string
	Database    string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

// IsEmpty returns true if no connection-related granular flags were provided.
// Database is excluded: -d may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == "" &&
		g.SSLCert == "" && g.SSLKey == "" && g.SSLRootCert == ""
}

// CloudFlags selects a cloud IAM authentication method from the CLI.
// Azure client secrets are read from $AZURE_CLIENT_SECRET only.
type CloudFlags struct {
	AWS       bool
	AWSRegion string

	Azure         bool
	AzureTenantID string
	AzureClientID string

	Google         bool
	GoogleInstance string
}

// EnvVars holds the environment variables the resolver consults.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	SKYLOAD_CONNECTION_STRING string
	DATABASE_URL              string

	PGHOST        string
	PGPORT        string
	PGUSER        string
	PGPASSWORD    string
	PGDATABASE    string
	PGSSLMODE     string
	PGSSLCERT     string
	PGSSLKEY      string
	PGSSLROOTCERT string

	AWS_REGION         string
	AWS_DEFAULT_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment snapshots the variables listed in EnvVars.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		SKYLOAD_CONNECTION_STRING: os.Getenv("SKYLOAD_CONNECTION_STRING"),
		DATABASE_URL:              os.Getenv("DATABASE_URL"),
		PGHOST:                    os.Getenv("PGHOST"),
		PGPORT:                    os.Getenv("PGPORT"),
		PGUSER:                    os.Getenv("PGUSER"),
		PGPASSWORD:                os.Getenv("PGPASSWORD"),
		PGDATABASE:                os.Getenv("PGDATABASE"),
		PGSSLMODE:                 os.Getenv("PGSSLMODE"),
		PGSSLCERT:                 os.Getenv("PGSSLCERT"),
		PGSSLKEY:                  os.Getenv("PGSSLKEY"),
		PGSSLROOTCERT:             os.Getenv("PGSSLROOTCERT"),
		AWS_REGION:                os.Getenv("AWS_REGION"),
		AWS_DEFAULT_REGION:        os.Getenv("AWS_DEFAULT_REGION"),
		AZURE_TENANT_ID:           os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:           os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET:       os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnectionParams resolves connection parameters with this precedence:
//
//  1. --connection flag
//  2. granular flags (-h, -p, -U, --sslmode, --sslcert ...)
//  3. $SKYLOAD_CONNECTION_STRING, then $DATABASE_URL (only without granular flags)
//  4. libpq environment variables (PGHOST, PGPORT ...)
//  5. skyload.yaml connection block
//  6. defaults (localhost:5432, sslmode=prefer, current OS user)
//
// -d always wins for the target database, including over a connection string.
// The second return value is the maintenance database used for CREATE DATABASE.
func ResolveConnectionParams(
	connStringFlag string,
	granularFlags *GranularConnFlags,
	cloudFlags *CloudFlags,
	envVars *EnvVars,
	projectConfig *config.ProjectConfig,
) (*skyload.ConnectionConfig, string, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if cloudFlags == nil {
		cloudFlags = &CloudFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	if connStringFlag != "" && !granularFlags.IsEmpty() {
		return nil, "", fmt.Errorf(
			"cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://user@localhost:5432/sky\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U myuser -d sky\n"+
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=myuser: %w",
			skyload.ErrInvalidConfig,
		)
	}

	var (
		cfg *skyload.ConnectionConfig
		err error
	)
	switch {
	case connStringFlag != "":
		cfg, err = resolveFromConnectionString(connStringFlag, envVars)
	case granularFlags.IsEmpty() && envVars.SKYLOAD_CONNECTION_STRING != "":
		cfg, err = resolveFromConnectionString(envVars.SKYLOAD_CONNECTION_STRING, envVars)
	case granularFlags.IsEmpty() && envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, pc)
	}
	if err != nil {
		return nil, "", err
	}

	if granularFlags.Database != "" {
		cfg.Database = granularFlags.Database
	}
	if cfg.Database == "" {
		return nil, "", fmt.Errorf("target database is required (use -d, $PGDATABASE, a connection string or skyload.yaml): %w",
			skyload.ErrInvalidConfig)
	}

	if err := applyAuthMethod(cfg, cloudFlags, envVars, pc); err != nil {
		return nil, "", err
	}

	maintenanceDB := pc.ManagementDatabase
	if maintenanceDB == "" {
		maintenanceDB = skyload.DefaultManagementDB
	}

	return cfg, maintenanceDB, nil
}

// resolveFromConnectionString parses connStr and applies libpq environment
// fallbacks for parameters the string leaves out.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*skyload.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	if cfg.Password == "" {
		cfg.Password = envVars.PGPASSWORD
	}
	if cfg.Database == "" {
		cfg.Database = envVars.PGDATABASE
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveFromGranularParams builds a config parameter by parameter:
// flag > environment variable > skyload.yaml > default.
func resolveFromGranularParams(
	flags *GranularConnFlags,
	envVars *EnvVars,
	pc config.ConnectionConfig,
) (*skyload.ConnectionConfig, error) {
	cfg := &skyload.ConnectionConfig{
		AuthMethod:       skyload.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstNonEmpty(flags.Host, envVars.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", envVars.PGPORT, skyload.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstNonEmpty(flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = envVars.PGPASSWORD
	cfg.Database = firstNonEmpty(flags.Database, envVars.PGDATABASE, pc.Database)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer")
	cfg.SSLCert = firstNonEmpty(flags.SSLCert, envVars.PGSSLCERT, pc.SSLCert)
	cfg.SSLKey = firstNonEmpty(flags.SSLKey, envVars.PGSSLKEY, pc.SSLKey)
	cfg.SSLRootCert = firstNonEmpty(flags.SSLRootCert, envVars.PGSSLROOTCERT, pc.SSLRootCert)

	if cfg.SSLCert != "" {
		cfg.AuthMethod = skyload.AuthMethodCertificate
	}
	return cfg, nil
}

// ParseAuthMethod parses the auth_method value of skyload.yaml.
func ParseAuthMethod(s string) (skyload.AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return skyload.AuthMethodStandard, nil
	case "certificate", "cert", "mtls":
		return skyload.AuthMethodCertificate, nil
	case "aws", "aws-iam":
		return skyload.AuthMethodAWSIAM, nil
	case "google", "gcp", "google-iam":
		return skyload.AuthMethodGoogleIAM, nil
	case "azure", "entra", "azure-entra-id":
		return skyload.AuthMethodAzureEntraID, nil
	default:
		return 0, fmt.Errorf("unknown auth method %q: %w", s, skyload.ErrUnsupportedAuthMethod)
	}
}

// applyAuthMethod selects cloud IAM authentication from flags or
// skyload.yaml and fills in the provider-specific parameters.
// Flags are exclusive of each other; a flag overrides the yaml method.
func applyAuthMethod(cfg *skyload.ConnectionConfig, flags *CloudFlags, env *EnvVars, pc config.ConnectionConfig) error {
	var selected []skyload.AuthMethod
	if flags.AWS || flags.AWSRegion != "" {
		selected = append(selected, skyload.AuthMethodAWSIAM)
	}
	if flags.Azure || flags.AzureTenantID != "" || flags.AzureClientID != "" {
		selected = append(selected, skyload.AuthMethodAzureEntraID)
	}
	if flags.Google || flags.GoogleInstance != "" {
		selected = append(selected, skyload.AuthMethodGoogleIAM)
	}
	if len(selected) > 1 {
		return fmt.Errorf("--aws, --azure and --google are mutually exclusive: %w", skyload.ErrInvalidConfig)
	}

	method := cfg.AuthMethod
	if len(selected) == 1 {
		method = selected[0]
	} else if pc.AuthMethod != "" {
		parsed, err := ParseAuthMethod(pc.AuthMethod)
		if err != nil {
			return err
		}
		if parsed != skyload.AuthMethodStandard {
			method = parsed
		}
	}

	switch method {
	case skyload.AuthMethodAWSIAM:
		cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, env.AWS_DEFAULT_REGION, pc.AWSRegion)
		if cfg.AWSRegion == "" {
			return fmt.Errorf("AWS IAM auth requires a region (use --aws-region or $AWS_REGION): %w", skyload.ErrInvalidConfig)
		}
	case skyload.AuthMethodAzureEntraID:
		cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
		cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case skyload.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
		if cfg.GoogleInstance == "" {
			return fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", skyload.ErrInvalidConfig)
		}
	case skyload.AuthMethodCertificate:
		if cfg.SSLCert == "" || cfg.SSLKey == "" {
			return fmt.Errorf("certificate auth requires both --sslcert and --sslkey: %w", skyload.ErrInvalidConfig)
		}
	}

	if method == skyload.AuthMethodAWSIAM || method == skyload.AuthMethodGoogleIAM {
		if cfg.Username == "" {
			return fmt.Errorf("%s auth requires a database username (-U): %w", method, skyload.ErrInvalidConfig)
		}
	}

	cfg.AuthMethod = method
	return nil
}
