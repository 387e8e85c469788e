package skyload

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	report, err := loader.Load(ctx, config)
//	if errors.Is(err, skyload.ErrUnresolvedReference) {
//	    // A dataset label is missing from the seeded class table
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates the database connection could not be established.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrDataFormat indicates the source dataset is malformed or incomplete.
	ErrDataFormat = errors.New("data format error")

	// ErrSchema indicates DDL execution failed.
	ErrSchema = errors.New("schema error")

	// ErrUnresolvedReference indicates a dependent row references a lookup
	// value that is not present in the committed parent table.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrConstraintViolation indicates a batch violated a uniqueness or
	// foreign-key constraint.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrConnectivity indicates the store connection was lost mid-load.
	ErrConnectivity = errors.New("connectivity lost")
)

// DataFormatError reports a dataset that cannot be parsed into the expected
// tabular shape. Line is 1-based and counts the header; zero means the
// failure is not tied to a line (e.g. empty input).
type DataFormatError struct {
	Line   int
	Column string
	Reason string
	Err    error
}

func (e *DataFormatError) Error() string {
	var b strings.Builder
	b.WriteString("data format error")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ", column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DataFormatError) Unwrap() error { return e.Err }

func (e *DataFormatError) Is(target error) bool { return target == ErrDataFormat }

// SchemaError reports a failed DDL statement.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("schema error: %v", e.Err)
	}
	return fmt.Sprintf("schema error on table %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// UnresolvedReferenceError reports a dependent row whose lookup value
// (class name, object id) has no committed parent row.
type UnresolvedReferenceError struct {
	// Table is the dependent table being extracted.
	Table string
	// Kind names the lookup that failed, e.g. "class" or "object".
	Kind string
	// Value is the unresolved lookup value.
	Value string
	// Row is the zero-based dataset row index.
	Row int
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved %s reference %q in row %d for table %s", e.Kind, e.Value, e.Row, e.Table)
}

func (e *UnresolvedReferenceError) Is(target error) bool { return target == ErrUnresolvedReference }

// BatchError reports a failed batch. Offset is the index of the first
// tuple in the batch; Committed counts tuples committed by earlier batches.
// A zero Size means the failure happened outside any batch, such as a key
// lookup against Table.
type BatchError struct {
	Table     string
	Batch     int
	Offset    int
	Size      int
	Committed int
	Err       error
}

func (e *BatchError) Error() string {
	if e.Size == 0 {
		return fmt.Sprintf("table %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("table %s batch %d (rows %d-%d, %d committed before failure): %v",
		e.Table, e.Batch, e.Offset, e.Offset+e.Size-1, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// ConstraintViolationError is a BatchError caused by a uniqueness or
// foreign-key violation. It is never retried.
type ConstraintViolationError struct {
	BatchError
	// Constraint is the violated constraint name when the server reports one.
	Constraint string
}

func (e *ConstraintViolationError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("constraint %s violated: %s", e.Constraint, e.BatchError.Error())
	}
	return "constraint violated: " + e.BatchError.Error()
}

func (e *ConstraintViolationError) Unwrap() error { return &e.BatchError }

func (e *ConstraintViolationError) Is(target error) bool { return target == ErrConstraintViolation }

// ConnectivityError is a BatchError caused by losing the store connection.
// No automatic reconnection is attempted.
type ConnectivityError struct {
	BatchError
}

func (e *ConnectivityError) Error() string {
	return "connection lost: " + e.BatchError.Error()
}

func (e *ConnectivityError) Unwrap() error { return &e.BatchError }

func (e *ConnectivityError) Is(target error) bool {
	return target == ErrConnectivity || target == ErrConnectionFailed
}

// StageError attributes a failure to a pipeline stage and, when relevant,
// the table being processed, so a caller can resume from a table boundary.
type StageError struct {
	Stage Stage
	Table string
	Err   error
}

func (e *StageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Table, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrConnectivity):
		return ExitConnectionError
	case errors.Is(err, ErrDataFormat):
		return ExitDataFormatError
	case errors.Is(err, ErrSchema):
		return ExitSchemaError
	case errors.Is(err, ErrUnresolvedReference):
		return ExitUnresolvedReference
	case errors.Is(err, ErrConstraintViolation):
		return ExitConstraintViolation
	}

	errStr := err.Error()
	if isUsageError(errStr) {
		return ExitUsageError
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// isUsageError recognizes cobra's argument and flag validation messages.
func isUsageError(msg string) bool {
	for _, prefix := range []string{
		"missing required argument",
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"accepts ",
		"requires at least",
		"required flag",
		"invalid argument",
	} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
