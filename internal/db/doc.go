// Package db resolves connection parameters and opens PostgreSQL connection
// pools for the loader.
//
// Connection parameters come from a connection string (URI or ADO.NET),
// granular flags, libpq environment variables and skyload.yaml, in that
// order of precedence. NewConnector picks a connector for the resolved
// authentication method:
//
//   - Standard and Certificate: username/password or client certificates
//   - AWS IAM: RDS auth token used as the password
//   - Azure Entra ID: OAuth token used as the password
//   - Google IAM: Cloud SQL Go Connector dialer
//
// Connection establishment is retried on transient failures. Nothing after
// the pool is open is retried here.
package db
