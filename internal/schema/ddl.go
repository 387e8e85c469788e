package schema

import "github.com/skyload/skyload/pkg/skyload"

// Table is one target table: its DDL, the columns an existing table must
// have, and any secondary indexes.
type Table struct {
	Name    string
	Create  string
	Columns []string
	Indexes []string
}

// Tables lists the target tables parents-first. Init creates them in this
// order and drops them in reverse.
var Tables = []Table{
	{
		Name: skyload.TableClass,
		Create: `CREATE TABLE IF NOT EXISTS class (
	class_id SERIAL PRIMARY KEY,
	name VARCHAR(32) NOT NULL UNIQUE
)`,
		Columns: []string{"class_id", "name"},
	},
	{
		Name: skyload.TableObject,
		Create: `CREATE TABLE IF NOT EXISTS celestial_object (
	object_id BIGSERIAL PRIMARY KEY,
	obj_id BIGINT NOT NULL UNIQUE,
	alpha DOUBLE PRECISION NOT NULL,
	delta DOUBLE PRECISION NOT NULL,
	class_id INTEGER NOT NULL REFERENCES class (class_id)
)`,
		Columns: []string{"object_id", "obj_id", "alpha", "delta", "class_id"},
		Indexes: []string{
			`CREATE INDEX IF NOT EXISTS celestial_object_class_id_idx ON celestial_object (class_id)`,
		},
	},
	{
		Name: skyload.TablePhotometry,
		Create: `CREATE TABLE IF NOT EXISTS photometric_reading (
	object_id BIGINT PRIMARY KEY REFERENCES celestial_object (object_id),
	u DOUBLE PRECISION NOT NULL,
	g DOUBLE PRECISION NOT NULL,
	r DOUBLE PRECISION NOT NULL,
	i DOUBLE PRECISION NOT NULL,
	z DOUBLE PRECISION NOT NULL,
	run_id INTEGER,
	rerun_id INTEGER,
	cam_col INTEGER,
	field_id INTEGER
)`,
		Columns: []string{"object_id", "u", "g", "r", "i", "z", "run_id", "rerun_id", "cam_col", "field_id"},
	},
	{
		Name: skyload.TableSpectroscopy,
		Create: `CREATE TABLE IF NOT EXISTS spectroscopic_reading (
	reading_id BIGSERIAL PRIMARY KEY,
	object_id BIGINT NOT NULL REFERENCES celestial_object (object_id),
	class_id INTEGER NOT NULL REFERENCES class (class_id),
	redshift DOUBLE PRECISION NOT NULL,
	plate INTEGER NOT NULL,
	mjd INTEGER NOT NULL,
	fiber_id INTEGER NOT NULL,
	spec_obj_id NUMERIC(20, 0) NOT NULL,
	UNIQUE (plate, mjd, fiber_id)
)`,
		Columns: []string{"reading_id", "object_id", "class_id", "redshift", "plate", "mjd", "fiber_id", "spec_obj_id"},
		Indexes: []string{
			`CREATE INDEX IF NOT EXISTS spectroscopic_reading_object_id_idx ON spectroscopic_reading (object_id)`,
			`CREATE INDEX IF NOT EXISTS spectroscopic_reading_class_id_idx ON spectroscopic_reading (class_id)`,
			`CREATE INDEX IF NOT EXISTS spectroscopic_reading_spec_obj_id_idx ON spectroscopic_reading (spec_obj_id)`,
		},
	},
}

// ForeignKey is a dependent column and the parent key it must resolve to.
type ForeignKey struct {
	Table        string
	Column       string
	ParentTable  string
	ParentColumn string
}

// ForeignKeys lists every reference Verify checks.
var ForeignKeys = []ForeignKey{
	{skyload.TableObject, "class_id", skyload.TableClass, "class_id"},
	{skyload.TablePhotometry, "object_id", skyload.TableObject, "object_id"},
	{skyload.TableSpectroscopy, "object_id", skyload.TableObject, "object_id"},
	{skyload.TableSpectroscopy, "class_id", skyload.TableClass, "class_id"},
}

const queryTableColumns = `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1`
