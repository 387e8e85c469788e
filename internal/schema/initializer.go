// Package schema creates and verifies the normalized target tables.
package schema

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/skyload/skyload/pkg/skyload"
)

// Initializer creates the target tables.
type Initializer struct {
	logger skyload.Logger
}

// NewInitializer creates an Initializer that logs through logger.
func NewInitializer(logger skyload.Logger) *Initializer {
	return &Initializer{logger: logger}
}

// Init prepares the schema in a single transaction.
//
// SchemaModeCreate creates missing tables and leaves existing ones, so it is
// safe on both an empty and an already initialized database.
// SchemaModeRecreate drops all target tables dependents-first and creates
// them again. Either mode then checks every table has the expected columns,
// so a conflicting pre-existing table fails here rather than mid-load.
func (i *Initializer) Init(ctx context.Context, conn skyload.SessionConn, mode skyload.SchemaMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("unknown schema mode %q: %w", mode, skyload.ErrInvalidConfig)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return &skyload.SchemaError{Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback(ctx)

	if mode == skyload.SchemaModeRecreate {
		for _, t := range slices.Backward(Tables) {
			i.logger.Verbose("Dropping table %s", t.Name)
			if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{t.Name}.Sanitize()+" CASCADE"); err != nil {
				return &skyload.SchemaError{Table: t.Name, Err: err}
			}
		}
	}

	for _, t := range Tables {
		i.logger.Verbose("Creating table %s", t.Name)
		if _, err := tx.Exec(ctx, t.Create); err != nil {
			return &skyload.SchemaError{Table: t.Name, Err: err}
		}
		for _, idx := range t.Indexes {
			if _, err := tx.Exec(ctx, idx); err != nil {
				return &skyload.SchemaError{Table: t.Name, Err: err}
			}
		}
	}

	for _, t := range Tables {
		if err := checkColumns(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &skyload.SchemaError{Err: fmt.Errorf("failed to commit schema: %w", err)}
	}

	i.logger.Verbose("Schema ready (%s mode)", mode)
	return nil
}

func checkColumns(ctx context.Context, tx pgx.Tx, t Table) error {
	rows, err := tx.Query(ctx, queryTableColumns, t.Name)
	if err != nil {
		return &skyload.SchemaError{Table: t.Name, Err: err}
	}
	present, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return &skyload.SchemaError{Table: t.Name, Err: err}
	}

	var missing []string
	for _, col := range t.Columns {
		if !slices.Contains(present, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &skyload.SchemaError{
			Table: t.Name,
			Err:   fmt.Errorf("existing table is missing columns %s; rerun with --schema-mode recreate", strings.Join(missing, ", ")),
		}
	}
	return nil
}
