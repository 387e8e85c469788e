package services

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skyload/skyload/pkg/skyload"
)

// ConnectorFactory builds the connector for a resolved connection.
type ConnectorFactory func(*skyload.ConnectionConfig) (skyload.Connector, error)

// SessionManager opens the single store session a load runs on.
//
// SessionManager is thread-safe for concurrent use as long as the injected
// connector factory and logger are also thread-safe.
type SessionManager struct {
	connectorFactory ConnectorFactory
	logger           skyload.Logger
}

// NewSessionManager creates a SessionManager.
//
// Panics if any dependency is nil (programmer error).
func NewSessionManager(connectorFactory ConnectorFactory, logger skyload.Logger) *SessionManager {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &SessionManager{connectorFactory: connectorFactory, logger: logger}
}

// Open connects to connConfig.Database and acquires one connection for the
// whole run. The caller must Close the returned session.
func (sm *SessionManager) Open(ctx context.Context, connConfig *skyload.ConnectionConfig) (*skyload.Session, error) {
	sm.logger.Verbose("Connecting to database '%s'", connConfig.Database)

	connector, err := sm.connectorFactory(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		closeConnector(connector)
		return nil, fmt.Errorf("failed to connect to database %q: %w", connConfig.Database, err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		closeConnector(connector)
		return nil, fmt.Errorf("failed to acquire connection: %w: %w", skyload.ErrConnectionFailed, err)
	}

	return skyload.NewSession(conn,
		conn.Release,
		pool.Close,
		func() { closeConnector(connector) },
	), nil
}

// closeConnector releases dialers held by connectors such as the Cloud SQL
// connector. Plain connectors hold nothing.
func closeConnector(c skyload.Connector) {
	if closer, ok := c.(io.Closer); ok {
		_ = closer.Close()
	}
}

// managementConn opens a pool on the maintenance database for server-level
// statements such as CREATE DATABASE.
func managementConn(ctx context.Context, factory ConnectorFactory, connConfig *skyload.ConnectionConfig, dbName string) (*pgxpool.Pool, func(), error) {
	mgmtConfig := *connConfig
	mgmtConfig.Database = dbName

	connector, err := factory(&mgmtConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		closeConnector(connector)
		return nil, nil, fmt.Errorf("failed to connect to management database %q: %w", dbName, err)
	}

	return pool, func() {
		pool.Close()
		closeConnector(connector)
	}, nil
}

var _ skyload.SessionOpener = (*SessionManager)(nil)
