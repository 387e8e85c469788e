package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skyload/skyload/internal/retry"
	"github.com/skyload/skyload/pkg/skyload"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns covers the single session connection plus headroom for
	// the maintenance queries issued before a load.
	DefaultMaxConns = 2

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps the session connection alive between
	// large batches.
	DefaultMaxConnIdleTime = 30 * time.Minute

	// tokenExpiryWarning triggers a warning when a cloud token is about to expire.
	tokenExpiryWarning = 5 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger skyload.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("server notice: %s", notice.Message)
	}
}

func newRetryExecutor(logger skyload.Logger) *retry.Executor {
	classifier := retry.NewPostgreSQLErrorClassifier()
	strategy := retry.NewExponentialBackoff(skyload.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(skyload.DefaultRetryInitialDelay),
		retry.WithMaxDelay(skyload.DefaultRetryMaxDelay),
	)
	return retry.NewExecutor(classifier, strategy, func(attempt int, err error, delay time.Duration) {
		logger.Verbose("connection attempt %d failed, retrying in %v: %v", attempt+1, delay.Round(time.Millisecond), err)
	})
}

// PoolConnector opens a pgx pool with automatic retry on transient failures.
// With a TokenProvider, a fresh token is acquired for every attempt and used
// as the password (AWS IAM, Azure Entra ID). Without one, the configured
// password or client certificates are used as-is.
type PoolConnector struct {
	config        *skyload.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	logger        skyload.Logger
}

// NewStandardConnector creates a connector for password or certificate authentication.
func NewStandardConnector(config *skyload.ConnectionConfig, logger skyload.Logger) *PoolConnector {
	return NewTokenBasedConnector(config, nil, logger)
}

// NewTokenBasedConnector creates a connector that authenticates with tokens
// from tokenProvider. A nil provider behaves like NewStandardConnector.
func NewTokenBasedConnector(config *skyload.ConnectionConfig, tokenProvider TokenProvider, logger skyload.Logger) *PoolConnector {
	return &PoolConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: newRetryExecutor(logger),
		logger:        logger,
	}
}

// Connect establishes and pings a connection pool.
func (c *PoolConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		cfg := *c.config
		if c.tokenProvider != nil {
			token, expiresOn, err := c.tokenProvider.GetToken(ctx)
			if err != nil {
				return fmt.Errorf("failed to acquire token from %s: %w", c.tokenProvider, err)
			}
			if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
				c.logger.Info("Warning: %s token expires in %v", c.tokenProvider, remaining.Round(time.Second))
			}
			cfg.Password = token
		}

		poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(&cfg))
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", err)
		}
		configurePool(poolConfig, c.logger)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			pool = nil
			return wrapConnectionError(err, cfg.Host, cfg.Port, cfg.Database)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}

// NewConnector creates the Connector matching config.AuthMethod.
func NewConnector(config *skyload.ConnectionConfig, logger skyload.Logger) (skyload.Connector, error) {
	switch config.AuthMethod {
	case skyload.AuthMethodStandard, skyload.AuthMethodCertificate:
		return NewStandardConnector(config, logger), nil
	case skyload.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case skyload.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	case skyload.AuthMethodAzureEntraID:
		return newAzureConnector(config, logger)
	default:
		return nil, fmt.Errorf("auth method %v: %w", config.AuthMethod, skyload.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError wraps raw pgx connection errors with actionable
// guidance. The result matches skyload.ErrConnectionFailed and still
// unwraps to the original error.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var guidance string
	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		guidance = fmt.Sprintf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection`, addr, host, port)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		guidance = fmt.Sprintf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable`, host)

	case strings.Contains(errStr, "password authentication failed"):
		guidance = fmt.Sprintf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username
  - User does not have access to the database`, database)

	case strings.Contains(errStr, "does not exist"):
		guidance = fmt.Sprintf(`database "%s" does not exist

To create it:
  createdb %s

Or pass --create-database to let skyload create it.`, database, database)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		guidance = fmt.Sprintf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)`, addr)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		guidance = `SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)
  - Client certificates missing (check --sslcert, --sslkey)`

	case strings.Contains(errStr, "too many connections"):
		guidance = fmt.Sprintf(`too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Stale sessions from an interrupted load`, database)

	default:
		return fmt.Errorf("failed to connect to database: %w: %w", skyload.ErrConnectionFailed, err)
	}

	return fmt.Errorf("%w: %s\n\nOriginal error: %w", skyload.ErrConnectionFailed, guidance, err)
}

func newAWSConnector(config *skyload.ConnectionConfig, logger skyload.Logger) (skyload.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, logger), nil
}

func newGoogleConnector(config *skyload.ConnectionConfig, logger skyload.Logger) (skyload.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", skyload.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", skyload.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance, logger), nil
}

// newAzureConnector uses Service Principal auth when tenant, client and
// secret are all set, otherwise the DefaultAzureCredential chain.
func newAzureConnector(config *skyload.ConnectionConfig, logger skyload.Logger) (skyload.Connector, error) {
	var (
		tokenProvider TokenProvider
		err           error
	)

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewAzureServicePrincipalProvider(config.AzureTenantID, config.AzureClientID, config.AzureClientSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Service Principal provider: %w", err)
		}
	} else {
		tokenProvider, err = NewAzureDefaultCredentialProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Default Credential provider: %w", err)
		}
	}

	return NewTokenBasedConnector(config, tokenProvider, logger), nil
}
