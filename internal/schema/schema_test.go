package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/skyload/skyload/internal/logging"
	"github.com/skyload/skyload/internal/testing/fakedb"
	"github.com/skyload/skyload/pkg/skyload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// existingColumns scripts information_schema lookups from Tables, minus
// anything listed in drop.
func existingColumns(drop map[string][]string) func(string, []any) (*fakedb.Rows, error) {
	return func(sql string, args []any) (*fakedb.Rows, error) {
		if !strings.Contains(sql, "information_schema.columns") {
			return nil, nil
		}
		name := args[0].(string)
		var data [][]any
		for _, t := range Tables {
			if t.Name != name {
				continue
			}
			for _, col := range t.Columns {
				if !contains(drop[name], col) {
					data = append(data, []any{col})
				}
			}
		}
		return fakedb.NewRows(data...), nil
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func createIndex(statements []string, table string) int {
	for i, s := range statements {
		if strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			return i
		}
	}
	return -1
}

func TestTables_SpectroscopicReadingKey(t *testing.T) {
	spec := Tables[len(Tables)-1]
	require.Equal(t, skyload.TableSpectroscopy, spec.Name)

	assert.Contains(t, spec.Create, "UNIQUE (plate, mjd, fiber_id)")
	assert.Contains(t, spec.Create, "spec_obj_id NUMERIC(20, 0) NOT NULL,")
	assert.NotContains(t, spec.Create, "spec_obj_id NUMERIC(20, 0) NOT NULL UNIQUE")
}

func TestInit_CreateOrder(t *testing.T) {
	conn := fakedb.New()
	conn.QueryFunc = existingColumns(nil)

	err := NewInitializer(logging.NewNullLogger()).Init(context.Background(), conn, skyload.SchemaModeCreate)
	require.NoError(t, err)

	sql := conn.SQL()
	classAt := createIndex(sql, skyload.TableClass)
	objectAt := createIndex(sql, skyload.TableObject)
	photoAt := createIndex(sql, skyload.TablePhotometry)
	specAt := createIndex(sql, skyload.TableSpectroscopy)

	require.NotEqual(t, -1, classAt)
	assert.Less(t, classAt, objectAt, "class before celestial_object")
	assert.Less(t, objectAt, photoAt, "celestial_object before photometric_reading")
	assert.Less(t, objectAt, specAt, "celestial_object before spectroscopic_reading")

	for _, s := range sql {
		assert.NotContains(t, s, "DROP TABLE", "create mode never drops")
	}
	assert.Equal(t, []int{1}, conn.Committed)
	for _, s := range conn.Statements {
		assert.Equal(t, 1, s.Tx, "every statement runs inside the schema transaction")
	}
}

func TestInit_RecreateDropsDependentsFirst(t *testing.T) {
	conn := fakedb.New()
	conn.QueryFunc = existingColumns(nil)

	err := NewInitializer(logging.NewNullLogger()).Init(context.Background(), conn, skyload.SchemaModeRecreate)
	require.NoError(t, err)

	var drops []string
	for _, s := range conn.SQL() {
		if strings.HasPrefix(s, "DROP TABLE") {
			drops = append(drops, s)
		}
	}
	require.Len(t, drops, 4)
	assert.Contains(t, drops[0], `"spectroscopic_reading"`)
	assert.Contains(t, drops[1], `"photometric_reading"`)
	assert.Contains(t, drops[2], `"celestial_object"`)
	assert.Contains(t, drops[3], `"class"`)

	lastDrop := -1
	for i, s := range conn.SQL() {
		if strings.HasPrefix(s, "DROP TABLE") {
			lastDrop = i
		}
	}
	assert.Less(t, lastDrop, createIndex(conn.SQL(), skyload.TableClass))
}

func TestInit_DDLFailureIsSchemaError(t *testing.T) {
	conn := fakedb.New()
	conn.ExecFunc = func(sql string, _ []any) (pgconn.CommandTag, error) {
		if strings.Contains(sql, "TABLE IF NOT EXISTS celestial_object") {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "42P07", Message: "relation already exists"}
		}
		return pgconn.CommandTag{}, nil
	}

	err := NewInitializer(logging.NewNullLogger()).Init(context.Background(), conn, skyload.SchemaModeCreate)

	var schemaErr *skyload.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, skyload.TableObject, schemaErr.Table)
	assert.True(t, errors.Is(err, skyload.ErrSchema))
	assert.Empty(t, conn.Committed)
	assert.Equal(t, []int{1}, conn.RolledBack)
}

func TestInit_ConflictingExistingTable(t *testing.T) {
	conn := fakedb.New()
	conn.QueryFunc = existingColumns(map[string][]string{skyload.TableSpectroscopy: {"spec_obj_id"}})

	err := NewInitializer(logging.NewNullLogger()).Init(context.Background(), conn, skyload.SchemaModeCreate)

	var schemaErr *skyload.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, skyload.TableSpectroscopy, schemaErr.Table)
	assert.Contains(t, err.Error(), "spec_obj_id")
	assert.Empty(t, conn.Committed)
}

func TestInit_BeginFailure(t *testing.T) {
	conn := fakedb.New()
	conn.BeginErr = errors.New("conn busy")

	err := NewInitializer(logging.NewNullLogger()).Init(context.Background(), conn, skyload.SchemaModeCreate)

	assert.ErrorIs(t, err, skyload.ErrSchema)
}

func TestInit_InvalidMode(t *testing.T) {
	err := NewInitializer(logging.NewNullLogger()).Init(context.Background(), fakedb.New(), skyload.SchemaMode("truncate"))

	assert.ErrorIs(t, err, skyload.ErrInvalidConfig)
}

func TestVerify_CountsOrphans(t *testing.T) {
	conn := fakedb.New()
	conn.QueryFunc = func(sql string, _ []any) (*fakedb.Rows, error) {
		switch {
		case strings.Contains(sql, "LEFT JOIN") && strings.HasPrefix(sql, `SELECT count(*) FROM "photometric_reading"`):
			return fakedb.NewRows([]any{int64(2)}), nil
		case strings.Contains(sql, "LEFT JOIN"):
			return fakedb.NewRows([]any{int64(0)}), nil
		default:
			return fakedb.NewRows([]any{int64(10)}), nil
		}
	}

	report, err := Verify(context.Background(), conn)
	require.NoError(t, err)

	assert.Equal(t, int64(10), report.Rows[skyload.TableClass])
	require.Len(t, report.Checks, len(ForeignKeys))
	assert.Equal(t, int64(2), report.Orphans())
	assert.False(t, report.OK())
	assert.Equal(t, skyload.TablePhotometry, report.Checks[1].Table)
	assert.Equal(t, int64(2), report.Checks[1].Orphans)
}

func TestVerify_QueryFailure(t *testing.T) {
	conn := fakedb.New()
	conn.QueryFunc = func(string, []any) (*fakedb.Rows, error) {
		return nil, &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	}

	_, err := Verify(context.Background(), conn)

	var schemaErr *skyload.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, skyload.TableClass, schemaErr.Table)
}

func TestOrphanQuery(t *testing.T) {
	q := orphanQuery(ForeignKeys[0])
	assert.Equal(t,
		`SELECT count(*) FROM "celestial_object" c LEFT JOIN "class" p ON p."class_id" = c."class_id" WHERE p."class_id" IS NULL`,
		q)
}
