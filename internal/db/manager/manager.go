package manager

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/skyload/skyload/pkg/skyload"
)

const queryDatabaseExists = "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"

// Manager implements skyload.DatabaseManager. Stateless and safe for
// concurrent use; thread safety depends on the injected DBConnection.
type Manager struct{}

// New creates a new Manager.
func New() *Manager {
	return &Manager{}
}

// Exists reports whether dbName exists on the server.
func (m *Manager) Exists(ctx context.Context, conn skyload.DBConnection, dbName string) (bool, error) {
	var exists bool
	if err := conn.QueryRow(ctx, queryDatabaseExists, dbName).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// Create issues CREATE DATABASE outside any transaction.
func (m *Manager) Create(ctx context.Context, conn skyload.DBConnection, dbName string) error {
	if dbName == "" {
		return fmt.Errorf("database name is required: %w", skyload.ErrInvalidConfig)
	}
	query := "CREATE DATABASE " + pgx.Identifier{dbName}.Sanitize()
	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create database %q: %w", dbName, err)
	}
	return nil
}

var _ skyload.DatabaseManager = (*Manager)(nil)
