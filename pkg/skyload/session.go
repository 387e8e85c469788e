package skyload

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SessionConn is the connection every pipeline stage receives.
// *pgxpool.Conn and pgx.Tx both satisfy it.
type SessionConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SessionOpener opens the single store session a load runs on.
type SessionOpener interface {
	Open(ctx context.Context, connConfig *ConnectionConfig) (*Session, error)
}

// Session owns the one store connection of a load run and every resource
// needed to release it (pooled connection, pool, cloud dialers).
//
// Thread-Safety: NOT safe for concurrent use.
//
// Example usage:
//
//	session, err := opener.Open(ctx, connConfig)
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
type Session struct {
	conn    SessionConn
	release []func()
}

// NewSession wraps conn. release functions run in the given order on Close,
// so pass the pooled connection's Release before the pool's Close.
//
// Panics if conn is nil (programmer error).
func NewSession(conn SessionConn, release ...func()) *Session {
	if conn == nil {
		panic("conn cannot be nil")
	}
	return &Session{conn: conn, release: release}
}

// Conn returns the session connection. Valid until Close is called.
func (s *Session) Conn() SessionConn {
	return s.conn
}

// Close releases all resources associated with the session.
// This method is idempotent and safe to call multiple times.
func (s *Session) Close() error {
	for _, fn := range s.release {
		if fn != nil {
			fn()
		}
	}
	s.release = nil
	s.conn = nil
	return nil
}
