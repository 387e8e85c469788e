package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skyload/skyload/internal/testing/fakedb"
	"github.com/skyload/skyload/pkg/skyload"
)

type mockConnector struct {
	pool *pgxpool.Pool
	err  error
}

func (m *mockConnector) Connect(_ context.Context) (*pgxpool.Pool, error) {
	return m.pool, m.err
}

type closingConnector struct {
	mockConnector
	closed bool
}

func (c *closingConnector) Close() error {
	c.closed = true
	return nil
}

type mockReader struct {
	obs []skyload.Observation
	err error
}

func (m *mockReader) ReadObservations(_ string) ([]skyload.Observation, error) {
	return m.obs, m.err
}

type mockSchema struct {
	err   error
	modes []skyload.SchemaMode
}

func (m *mockSchema) Init(_ context.Context, _ skyload.SessionConn, mode skyload.SchemaMode) error {
	m.modes = append(m.modes, mode)
	return m.err
}

type mockOpener struct {
	conn    skyload.SessionConn
	err     error
	closed  bool
	configs []skyload.ConnectionConfig
}

func (m *mockOpener) Open(_ context.Context, cfg *skyload.ConnectionConfig) (*skyload.Session, error) {
	m.configs = append(m.configs, *cfg)
	if m.err != nil {
		return nil, m.err
	}
	return skyload.NewSession(m.conn, func() { m.closed = true }), nil
}

type mockDatabaseManager struct {
	existsResult bool
	existsErr    error
	createErr    error
	created      []string
}

func (m *mockDatabaseManager) Exists(_ context.Context, _ skyload.DBConnection, _ string) (bool, error) {
	return m.existsResult, m.existsErr
}

func (m *mockDatabaseManager) Create(_ context.Context, _ skyload.DBConnection, dbName string) error {
	m.created = append(m.created, dbName)
	return m.createErr
}

type mockLogger struct{}

func (m *mockLogger) Verbose(_ string, _ ...interface{}) {}
func (m *mockLogger) Info(_ string, _ ...interface{})    {}
func (m *mockLogger) Error(_ string, _ ...interface{})   {}

func noConnector(_ *skyload.ConnectionConfig) (skyload.Connector, error) {
	return &mockConnector{err: skyload.ErrConnectionFailed}, nil
}

// memStore emulates the four target tables behind a fakedb.Conn closely
// enough to run the load pipeline: surrogate keys, unique keys, foreign
// keys and the three conflict policies. Statements apply all-or-nothing.
type memStore struct {
	mu sync.Mutex

	classes    map[string]int32
	classOrder []string
	objects    map[int64]*objectRow
	photometry map[int64][]any
	spectra    map[string][]any

	nextObjectID int64
}

type objectRow struct {
	id    int64
	alpha float64
	delta float64
	class int32
}

func newMemStore() *memStore {
	return &memStore{
		classes:    map[string]int32{},
		objects:    map[int64]*objectRow{},
		photometry: map[int64][]any{},
		spectra:    map[string][]any{},
	}
}

// seedClasses pre-populates the class table.
func (m *memStore) seedClasses(names ...string) {
	for _, n := range names {
		m.classOrder = append(m.classOrder, n)
		m.classes[n] = int32(len(m.classOrder))
	}
}

func (m *memStore) conn() *fakedb.Conn {
	c := fakedb.New()
	c.ExecFunc = m.exec
	c.QueryFunc = m.query
	return c
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func fkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "insert or update violates foreign key constraint"}
}

func groups(args []any, n int) [][]any {
	var out [][]any
	for i := 0; i < len(args); i += n {
		out = append(out, args[i:i+n])
	}
	return out
}

func (m *memStore) exec(sql string, args []any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	upsert := strings.Contains(sql, "ON CONFLICT")
	switch {
	case strings.HasPrefix(sql, `INSERT INTO "class"`):
		return pgconn.CommandTag{}, m.insertClasses(groups(args, 1), upsert)
	case strings.HasPrefix(sql, `INSERT INTO "celestial_object"`):
		return pgconn.CommandTag{}, m.insertObjects(groups(args, 4), upsert)
	case strings.HasPrefix(sql, `INSERT INTO "photometric_reading"`):
		return pgconn.CommandTag{}, m.insertPhotometry(groups(args, 10), upsert)
	case strings.HasPrefix(sql, `INSERT INTO "spectroscopic_reading"`):
		return pgconn.CommandTag{}, m.insertSpectra(groups(args, 7), upsert)
	}
	return pgconn.CommandTag{}, fmt.Errorf("memStore: unexpected statement %q", sql)
}

func (m *memStore) insertClasses(rows [][]any, upsert bool) error {
	seen := map[string]bool{}
	for _, r := range rows {
		name := r[0].(string)
		if !upsert && (seen[name] || m.classes[name] != 0) {
			return uniqueViolation("class_name_key")
		}
		seen[name] = true
	}
	for _, r := range rows {
		name := r[0].(string)
		if _, ok := m.classes[name]; !ok {
			m.classOrder = append(m.classOrder, name)
			m.classes[name] = int32(len(m.classOrder))
		}
	}
	return nil
}

func (m *memStore) hasClass(id int32) bool {
	return id >= 1 && int(id) <= len(m.classOrder)
}

func (m *memStore) insertObjects(rows [][]any, upsert bool) error {
	seen := map[int64]bool{}
	for _, r := range rows {
		objID := r[0].(int64)
		if !upsert && (seen[objID] || m.objects[objID] != nil) {
			return uniqueViolation("celestial_object_obj_id_key")
		}
		if !m.hasClass(r[3].(int32)) {
			return fkViolation("celestial_object_class_id_fkey")
		}
		seen[objID] = true
	}
	for _, r := range rows {
		objID := r[0].(int64)
		row := m.objects[objID]
		if row == nil {
			m.nextObjectID++
			row = &objectRow{id: m.nextObjectID}
			m.objects[objID] = row
		}
		row.alpha, row.delta, row.class = r[1].(float64), r[2].(float64), r[3].(int32)
	}
	return nil
}

func (m *memStore) hasObject(id int64) bool {
	for _, o := range m.objects {
		if o.id == id {
			return true
		}
	}
	return false
}

func (m *memStore) insertPhotometry(rows [][]any, upsert bool) error {
	seen := map[int64]bool{}
	for _, r := range rows {
		id := r[0].(int64)
		if !upsert && (seen[id] || m.photometry[id] != nil) {
			return uniqueViolation("photometric_reading_pkey")
		}
		if !m.hasObject(id) {
			return fkViolation("photometric_reading_object_id_fkey")
		}
		seen[id] = true
	}
	for _, r := range rows {
		m.photometry[r[0].(int64)] = slices.Clone(r)
	}
	return nil
}

// spectrumKey is the (plate, mjd, fiber_id) identity of a spectroscopic row.
func spectrumKey(r []any) string {
	return fmt.Sprintf("%d/%d/%d", r[3].(int32), r[4].(int32), r[5].(int32))
}

func (m *memStore) insertSpectra(rows [][]any, upsert bool) error {
	seen := map[string]bool{}
	for _, r := range rows {
		key := spectrumKey(r)
		if !upsert && (seen[key] || m.spectra[key] != nil) {
			return uniqueViolation("spectroscopic_reading_plate_mjd_fiber_id_key")
		}
		if _, ok := r[6].(pgtype.Numeric); !ok {
			return fmt.Errorf("memStore: spec_obj_id is %T, want pgtype.Numeric", r[6])
		}
		if !m.hasObject(r[0].(int64)) {
			return fkViolation("spectroscopic_reading_object_id_fkey")
		}
		if !m.hasClass(r[1].(int32)) {
			return fkViolation("spectroscopic_reading_class_id_fkey")
		}
		seen[key] = true
	}
	for _, r := range rows {
		m.spectra[spectrumKey(r)] = slices.Clone(r)
	}
	return nil
}

func (m *memStore) query(sql string, args []any) (*fakedb.Rows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case strings.HasPrefix(sql, "SELECT class_id, name FROM class"):
		var data [][]any
		for name, id := range m.classes {
			data = append(data, []any{id, name})
		}
		return fakedb.NewRows(data...), nil
	case strings.HasPrefix(sql, "SELECT object_id, obj_id FROM celestial_object"):
		var data [][]any
		for _, objID := range args[0].([]int64) {
			if o := m.objects[objID]; o != nil {
				data = append(data, []any{o.id, objID})
			}
		}
		return fakedb.NewRows(data...), nil
	}
	return nil, fmt.Errorf("memStore: unexpected query %q", sql)
}
