package db

import (
	"context"
	"time"
)

// TokenProvider acquires short-lived cloud tokens used as the PostgreSQL password.
type TokenProvider interface {
	// GetToken returns the token and its expiry time.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for log messages. Never includes secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// awsTokenLifetime is the validity window of an RDS IAM auth token.
const awsTokenLifetime = 15 * time.Minute
