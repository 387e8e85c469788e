package writer

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/skyload/skyload/pkg/skyload"
)

// ConflictPolicy decides what a batch does with rows whose conflict key
// already exists.
type ConflictPolicy int

const (
	// ConflictFail issues a plain INSERT: any duplicate key fails the batch.
	ConflictFail ConflictPolicy = iota
	// ConflictIgnore keeps the existing row (ON CONFLICT DO NOTHING).
	ConflictIgnore
	// ConflictUpdate overwrites UpdateColumns with the incoming values
	// (ON CONFLICT DO UPDATE).
	ConflictUpdate
)

func (p ConflictPolicy) String() string {
	switch p {
	case ConflictFail:
		return "fail"
	case ConflictIgnore:
		return "ignore"
	case ConflictUpdate:
		return "update"
	default:
		return fmt.Sprintf("ConflictPolicy(%d)", int(p))
	}
}

// Template describes the insert statement for one table. Tuples passed to
// Write carry values in Columns order.
type Template struct {
	Table           string
	Columns         []string
	ConflictColumns []string
	UpdateColumns   []string
	Policy          ConflictPolicy
}

// Strict returns a copy of t that fails on any duplicate key.
func (t Template) Strict() Template {
	t.Policy = ConflictFail
	return t
}

// Validate checks the template is internally consistent.
func (t Template) Validate() error {
	if t.Table == "" {
		return fmt.Errorf("template has no table: %w", skyload.ErrInvalidConfig)
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("template for %s has no columns: %w", t.Table, skyload.ErrInvalidConfig)
	}
	if len(t.Columns) > skyload.MaxBindParameters {
		return fmt.Errorf("template for %s has %d columns, more than the %d bind parameter limit: %w",
			t.Table, len(t.Columns), skyload.MaxBindParameters, skyload.ErrInvalidConfig)
	}
	if t.Policy != ConflictFail && len(t.ConflictColumns) == 0 {
		return fmt.Errorf("template for %s uses policy %s without conflict columns: %w", t.Table, t.Policy, skyload.ErrInvalidConfig)
	}
	if t.Policy == ConflictUpdate && len(t.UpdateColumns) == 0 {
		return fmt.Errorf("template for %s uses policy update without update columns: %w", t.Table, skyload.ErrInvalidConfig)
	}
	for _, c := range slices.Concat(t.ConflictColumns, t.UpdateColumns) {
		if !slices.Contains(t.Columns, c) {
			return fmt.Errorf("template for %s references unknown column %q: %w", t.Table, c, skyload.ErrInvalidConfig)
		}
	}
	return nil
}

// MaxBatchRows is the largest number of rows one statement of t can carry
// without exceeding the bind parameter limit.
func (t Template) MaxBatchRows() int {
	return skyload.MaxBindParameters / len(t.Columns)
}

// conflictIndexes returns the positions of ConflictColumns within Columns.
func (t Template) conflictIndexes() []int {
	idx := make([]int, len(t.ConflictColumns))
	for i, c := range t.ConflictColumns {
		idx[i] = slices.Index(t.Columns, c)
	}
	return idx
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pgx.Identifier{n}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// InsertSQL renders a multi-row INSERT for rows tuples.
//
//	INSERT INTO "t" ("a", "b") VALUES ($1, $2), ($3, $4)
//	ON CONFLICT ("a") DO UPDATE SET "b" = EXCLUDED."b"
func (t Template) InsertSQL(rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgx.Identifier{t.Table}.Sanitize())
	b.WriteString(" (")
	b.WriteString(quoteAll(t.Columns))
	b.WriteString(") VALUES ")

	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range t.Columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}

	switch t.Policy {
	case ConflictIgnore:
		b.WriteString(" ON CONFLICT (")
		b.WriteString(quoteAll(t.ConflictColumns))
		b.WriteString(") DO NOTHING")
	case ConflictUpdate:
		b.WriteString(" ON CONFLICT (")
		b.WriteString(quoteAll(t.ConflictColumns))
		b.WriteString(") DO UPDATE SET ")
		for i, c := range t.UpdateColumns {
			if i > 0 {
				b.WriteString(", ")
			}
			q := pgx.Identifier{c}.Sanitize()
			b.WriteString(q)
			b.WriteString(" = EXCLUDED.")
			b.WriteString(q)
		}
	}

	return b.String()
}
