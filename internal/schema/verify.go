package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/skyload/skyload/pkg/skyload"
)

// OrphanCount is the number of dependent rows whose reference has no parent row.
type OrphanCount struct {
	ForeignKey
	Orphans int64
}

// IntegrityReport summarizes a Verify run.
type IntegrityReport struct {
	// Rows maps each target table to its row count.
	Rows map[string]int64
	// Checks holds one entry per foreign key, in ForeignKeys order.
	Checks []OrphanCount
}

// Orphans returns the total number of orphaned rows across all checks.
func (r *IntegrityReport) Orphans() int64 {
	var n int64
	for _, c := range r.Checks {
		n += c.Orphans
	}
	return n
}

// OK reports whether no dependent row references a missing parent.
func (r *IntegrityReport) OK() bool {
	return r.Orphans() == 0
}

// Verify counts rows per table and, for every foreign key, the dependent
// rows that have no matching parent. The checks are anti-joins, so they
// also catch orphans in databases loaded with constraints disabled.
func Verify(ctx context.Context, conn skyload.SessionConn) (*IntegrityReport, error) {
	report := &IntegrityReport{Rows: make(map[string]int64, len(Tables))}

	for _, t := range Tables {
		var n int64
		query := "SELECT count(*) FROM " + pgx.Identifier{t.Name}.Sanitize()
		if err := conn.QueryRow(ctx, query).Scan(&n); err != nil {
			return nil, &skyload.SchemaError{Table: t.Name, Err: fmt.Errorf("failed to count rows: %w", err)}
		}
		report.Rows[t.Name] = n
	}

	for _, fk := range ForeignKeys {
		var n int64
		if err := conn.QueryRow(ctx, orphanQuery(fk)).Scan(&n); err != nil {
			return nil, &skyload.SchemaError{Table: fk.Table, Err: fmt.Errorf("failed to check %s.%s: %w", fk.Table, fk.Column, err)}
		}
		report.Checks = append(report.Checks, OrphanCount{ForeignKey: fk, Orphans: n})
	}

	return report, nil
}

func orphanQuery(fk ForeignKey) string {
	child := pgx.Identifier{fk.Table}.Sanitize()
	parent := pgx.Identifier{fk.ParentTable}.Sanitize()
	col := pgx.Identifier{fk.Column}.Sanitize()
	parentCol := pgx.Identifier{fk.ParentColumn}.Sanitize()

	return fmt.Sprintf(
		"SELECT count(*) FROM %s c LEFT JOIN %s p ON p.%s = c.%s WHERE p.%s IS NULL",
		child, parent, parentCol, col, parentCol,
	)
}
