package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skyload/skyload/pkg/skyload"
)

// PoolAdapter adapts *pgxpool.Pool to skyload.DBConnection so the database
// manager does not depend on pgx pool types.
//
// Safe for concurrent use (pgxpool.Pool is thread-safe).
type PoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPoolAdapter wraps pool.
func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (p *PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p *PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) skyload.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

var _ skyload.DBConnection = (*PoolAdapter)(nil)
