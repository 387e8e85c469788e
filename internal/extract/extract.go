package extract

import (
	"math/big"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/skyload/skyload/internal/writer"
	"github.com/skyload/skyload/pkg/skyload"
)

// Templates returns the insert templates for every table, parents first.
// In strict mode every template fails on duplicate keys.
func Templates(strict bool) []writer.Template {
	templates := []writer.Template{
		ClassTemplate,
		ObjectTemplate,
		PhotometryTemplate,
		SpectroscopyTemplate,
	}
	if strict {
		for i := range templates {
			templates[i] = templates[i].Strict()
		}
	}
	return templates
}

// Per-table templates. Class rows are never overwritten; every other
// table upserts on its natural key.
var (
	ClassTemplate = writer.Template{
		Table:           skyload.TableClass,
		Columns:         []string{"name"},
		ConflictColumns: []string{"name"},
		Policy:          writer.ConflictIgnore,
	}

	ObjectTemplate = writer.Template{
		Table:           skyload.TableObject,
		Columns:         []string{"obj_id", "alpha", "delta", "class_id"},
		ConflictColumns: []string{"obj_id"},
		UpdateColumns:   []string{"alpha", "delta", "class_id"},
		Policy:          writer.ConflictUpdate,
	}

	PhotometryTemplate = writer.Template{
		Table: skyload.TablePhotometry,
		Columns: []string{
			"object_id", "u", "g", "r", "i", "z",
			"run_id", "rerun_id", "cam_col", "field_id",
		},
		ConflictColumns: []string{"object_id"},
		UpdateColumns: []string{
			"u", "g", "r", "i", "z",
			"run_id", "rerun_id", "cam_col", "field_id",
		},
		Policy: writer.ConflictUpdate,
	}

	SpectroscopyTemplate = writer.Template{
		Table: skyload.TableSpectroscopy,
		Columns: []string{
			"object_id", "class_id", "redshift", "plate", "mjd", "fiber_id", "spec_obj_id",
		},
		// A spectrum is identified by its plate, MJD and fiber. spec_obj_id
		// is carried as data: the survey reuses it across fibers.
		ConflictColumns: []string{"plate", "mjd", "fiber_id"},
		UpdateColumns:   []string{"object_id", "class_id", "redshift", "spec_obj_id"},
		Policy:          writer.ConflictUpdate,
	}
)

// DistinctClasses returns the class labels of obs in first-seen order.
func DistinctClasses(obs []skyload.Observation) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, o := range obs {
		if _, ok := seen[o.Class]; ok {
			continue
		}
		seen[o.Class] = struct{}{}
		names = append(names, o.Class)
	}
	return names
}

// DistinctObjIDs returns the survey object ids of obs in first-seen order.
func DistinctObjIDs(obs []skyload.Observation) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, o := range obs {
		if _, ok := seen[o.ObjID]; ok {
			continue
		}
		seen[o.ObjID] = struct{}{}
		ids = append(ids, o.ObjID)
	}
	return ids
}

// Classes builds class tuples for names.
func Classes(names []string) [][]any {
	tuples := make([][]any, len(names))
	for i, n := range names {
		tuples[i] = []any{n}
	}
	return tuples
}

// CheckClasses verifies every class label of obs resolves. It runs before
// any dependent table is written so a missing label leaves no partial
// dependent rows behind.
func CheckClasses(obs []skyload.Observation, classes *ClassLookup) error {
	for i, o := range obs {
		if _, ok := classes.ID(o.Class); !ok {
			return &skyload.UnresolvedReferenceError{Table: skyload.TableObject, Kind: "class", Value: o.Class, Row: i}
		}
	}
	return nil
}

// Objects builds one celestial_object tuple per observation.
func Objects(obs []skyload.Observation, classes *ClassLookup) ([][]any, error) {
	tuples := make([][]any, len(obs))
	for i, o := range obs {
		classID, ok := classes.ID(o.Class)
		if !ok {
			return nil, &skyload.UnresolvedReferenceError{Table: skyload.TableObject, Kind: "class", Value: o.Class, Row: i}
		}
		tuples[i] = []any{o.ObjID, o.Alpha, o.Delta, classID}
	}
	return tuples, nil
}

// Photometry builds one photometric_reading tuple per observation.
func Photometry(obs []skyload.Observation, objects *ObjectLookup) ([][]any, error) {
	tuples := make([][]any, len(obs))
	for i, o := range obs {
		objectID, ok := objects.ID(o.ObjID)
		if !ok {
			return nil, unresolvedObject(skyload.TablePhotometry, o.ObjID, i)
		}
		tuples[i] = []any{
			objectID, o.U, o.G, o.R, o.I, o.Z,
			o.RunID, o.RerunID, o.CamCol, o.FieldID,
		}
	}
	return tuples, nil
}

// Spectra builds one spectroscopic_reading tuple per observation.
func Spectra(obs []skyload.Observation, objects *ObjectLookup, classes *ClassLookup) ([][]any, error) {
	tuples := make([][]any, len(obs))
	for i, o := range obs {
		objectID, ok := objects.ID(o.ObjID)
		if !ok {
			return nil, unresolvedObject(skyload.TableSpectroscopy, o.ObjID, i)
		}
		classID, ok := classes.ID(o.Class)
		if !ok {
			return nil, &skyload.UnresolvedReferenceError{Table: skyload.TableSpectroscopy, Kind: "class", Value: o.Class, Row: i}
		}
		tuples[i] = []any{
			objectID, classID, o.Redshift, o.Plate, o.MJD, o.FiberID, SpecObjID(o.SpecObjID),
		}
	}
	return tuples, nil
}

// SpecObjID encodes a spectroscopic id as NUMERIC; the survey's ids
// overflow BIGINT.
func SpecObjID(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

func unresolvedObject(table string, objID int64, row int) error {
	return &skyload.UnresolvedReferenceError{
		Table: table,
		Kind:  "object",
		Value: strconv.FormatInt(objID, 10),
		Row:   row,
	}
}
