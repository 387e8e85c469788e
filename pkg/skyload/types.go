package skyload

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoadConfig contains all parameters needed for a load operation.
type LoadConfig struct {
	// SourcePath is the CSV dataset to load (optionally .gz or .zst compressed)
	SourcePath string

	// Connection is the resolved connection to the target database
	Connection *ConnectionConfig

	// MaintenanceDatabase is used for CREATE DATABASE when CreateDatabase is set
	MaintenanceDatabase string

	// CreateDatabase creates the target database if it does not exist
	CreateDatabase bool

	// BatchSize is the number of tuples per committed batch
	BatchSize int

	// SchemaMode selects create-if-absent or drop-and-recreate
	SchemaMode SchemaMode

	// Strict turns every upsert into a plain insert: duplicates fail the load
	Strict bool

	// Classes pre-seeds the class lookup table. When empty, classes are
	// extracted from the labels present in the dataset.
	Classes []string

	// Timeout is the global timeout for the entire load
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.SourcePath == "" {
		errs = append(errs, fmt.Errorf("SourcePath is required: %w", ErrInvalidConfig))
	}

	if c.Connection == nil {
		errs = append(errs, fmt.Errorf("Connection is required: %w", ErrInvalidConfig))
	} else if c.Connection.Database == "" {
		errs = append(errs, fmt.Errorf("target database is required: %w", ErrInvalidConfig))
	}

	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig))
	}

	if !c.SchemaMode.IsValid() {
		errs = append(errs, fmt.Errorf("unknown schema mode %q: %w", c.SchemaMode, ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	seen := make(map[string]bool, len(c.Classes))
	for _, name := range c.Classes {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("seeded class names cannot be empty: %w", ErrInvalidConfig))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("seeded class %q listed twice: %w", name, ErrInvalidConfig))
		}
		seen[name] = true
	}

	return errors.Join(errs...)
}

// SchemaMode controls how the schema initializer treats existing tables.
type SchemaMode string

const (
	// SchemaModeCreate creates missing tables and leaves existing ones alone.
	SchemaModeCreate SchemaMode = "create"
	// SchemaModeRecreate drops all target tables and creates them again.
	SchemaModeRecreate SchemaMode = "recreate"
)

// IsValid returns true for known schema modes.
func (m SchemaMode) IsValid() bool {
	return m == SchemaModeCreate || m == SchemaModeRecreate
}

// ParseSchemaMode parses a schema mode name. Empty input yields SchemaModeCreate.
func ParseSchemaMode(s string) (SchemaMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "create":
		return SchemaModeCreate, nil
	case "recreate":
		return SchemaModeRecreate, nil
	default:
		return "", fmt.Errorf("unknown schema mode %q (want create or recreate): %w", s, ErrInvalidConfig)
	}
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host        string
	Port        int
	Database    string
	Username    string
	Password    string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Azure Entra ID authentication parameters (used when AuthMethod is AuthMethodAzureEntraID)
	// If all three are provided, Service Principal authentication is used.
	// If none are provided, DefaultAzureCredential chain is used (env vars, managed identity, CLI, etc.)
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	// AWSRegion is required for AuthMethodAWSIAM
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance connection name (project:region:instance)
	GoogleInstance string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodCertificate                    // mTLS
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodCertificate:
		return "Certificate"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// Stage names a step of the load pipeline.
type Stage string

const (
	StageConnect Stage = "connect"
	StageSchema  Stage = "schema"
	StageRead    Stage = "read"
	StageExtract Stage = "extract"
	StageWrite   Stage = "write"
	StageResolve Stage = "resolve"
	StageVerify  Stage = "verify"
)

// Status is the terminal status of a load run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// TableReport summarizes the writes to one table.
type TableReport struct {
	Table   string
	Rows    int
	Batches int
}

// LoadReport is the outcome of a load run. It is returned alongside the
// error on failure so callers can see which tables completed.
type LoadReport struct {
	RunID    uuid.UUID
	Status   Status
	Message  string
	Tables   []TableReport
	Started  time.Time
	Duration time.Duration
}

// Rows returns the rows written to table, or zero if the table was not reached.
func (r *LoadReport) Rows(table string) int {
	for _, t := range r.Tables {
		if t.Table == table {
			return t.Rows
		}
	}
	return 0
}
