package skyload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess             = 0  // Load completed successfully
	ExitGeneralError        = 1  // Unknown or unclassified error
	ExitUsageError          = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic               = 3  // Internal panic (unexpected crash)
	ExitConfigError         = 10 // Invalid configuration or parameters
	ExitConnectionError     = 11 // Failed to connect, or connection lost mid-load
	ExitDataFormatError     = 20 // Dataset malformed or missing required columns
	ExitSchemaError         = 21 // DDL failed
	ExitUnresolvedReference = 22 // Lookup value missing from parent table
	ExitConstraintViolation = 23 // Batch violated a constraint
)

const (
	// DefaultBatchSize is the number of tuples committed per transaction.
	DefaultBatchSize = 1000

	// MaxBindParameters is the PostgreSQL limit on bind parameters in one
	// statement. A batch may not exceed MaxBindParameters / column count rows.
	MaxBindParameters = 65535

	// DefaultTimeout bounds a whole load run.
	DefaultTimeout = 30 * time.Minute

	// DefaultRetryInitialDelay is the default initial delay before the first
	// connection retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between connection retries.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of connection retries.
	DefaultRetryMaxAttempts = 3

	// DefaultManagementDB is the database used for CREATE DATABASE.
	DefaultManagementDB = "postgres"

	// DefaultAppName is reported to the server as application_name.
	DefaultAppName = "skyload"
)

// Table names of the normalized schema, in dependency order.
const (
	TableClass        = "class"
	TableObject       = "celestial_object"
	TablePhotometry   = "photometric_reading"
	TableSpectroscopy = "spectroscopic_reading"
)

// Tables lists every target table parents-first.
var Tables = []string{TableClass, TableObject, TablePhotometry, TableSpectroscopy}
