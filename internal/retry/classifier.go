package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes used for classification.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgClassConnectionException  = "08"
	pgClassIntegrityViolation   = "23"
	pgClassInsufficientResource = "53"
	pgClassOperatorIntervention = "57"

	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeLockNotAvailable     = "55P03"
)

// PostgreSQLErrorClassifier implements skyload.ErrorClassifier for
// PostgreSQL errors returned by pgx.
type PostgreSQLErrorClassifier struct{}

// NewPostgreSQLErrorClassifier creates a new PostgreSQL error classifier.
func NewPostgreSQLErrorClassifier() *PostgreSQLErrorClassifier {
	return &PostgreSQLErrorClassifier{}
}

// IsTransient reports whether an error is temporary and the connection
// attempt is worth repeating.
func (c *PostgreSQLErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, pgClassConnectionException),
			strings.HasPrefix(pgErr.Code, pgClassInsufficientResource),
			strings.HasPrefix(pgErr.Code, pgClassOperatorIntervention):
			return true
		}
		switch pgErr.Code {
		case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
			return true
		}
		return false
	}

	return isNetworkError(err) || matchesConnectionMessage(err)
}

// IsConstraintViolation reports whether err is an integrity constraint
// violation (SQLSTATE class 23) and returns the constraint name when the
// server supplied one.
func IsConstraintViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if !strings.HasPrefix(pgErr.Code, pgClassIntegrityViolation) {
		return "", false
	}
	return pgErr.ConstraintName, true
}

// IsConnectivity reports whether err means the session can no longer be
// used: the server went away, the socket broke, or the connection closed
// underneath an in-flight statement. Context cancellation is not
// connectivity; callers see that as the caller's own decision.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, pgClassConnectionException) ||
			strings.HasPrefix(pgErr.Code, pgClassOperatorIntervention)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}

	return isNetworkError(err) || matchesConnectionMessage(err)
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		if opErr.Err != nil {
			for _, errno := range []syscall.Errno{
				syscall.ECONNREFUSED,
				syscall.ECONNRESET,
				syscall.ENETUNREACH,
				syscall.EHOSTUNREACH,
				syscall.EPIPE,
			} {
				if errors.Is(opErr.Err, errno) {
					return true
				}
			}
		}
	}

	return false
}

var connectionMessagePatterns = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"connection failure",
	"conn closed",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
}

func matchesConnectionMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range connectionMessagePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
