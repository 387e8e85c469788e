package skyload

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBConnection is the slice of a connection pool the database manager needs
// while talking to the maintenance database.
type DBConnection interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow always returns a non-nil Row; errors surface from Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Row represents a single row returned by QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// DatabaseManager checks for and creates the target database before a load.
// CREATE DATABASE cannot run inside a transaction, so implementations issue
// it directly on the maintenance connection.
type DatabaseManager interface {
	Exists(ctx context.Context, conn DBConnection, dbName string) (bool, error)
	Create(ctx context.Context, conn DBConnection, dbName string) error
}
