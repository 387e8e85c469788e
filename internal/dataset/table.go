package dataset

import (
	"fmt"

	"github.com/skyload/skyload/pkg/skyload"
)

// Row maps column name to typed value.
type Row map[string]Value

// Table is a fully parsed dataset: the header in file order and every row.
type Table struct {
	Columns []string
	Rows    []Row

	// lines[i] is the 1-based file line on which Rows[i] starts.
	lines []int
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Line returns the file line of row i, or zero when unknown.
func (t *Table) Line(i int) int {
	if i < len(t.lines) {
		return t.lines[i]
	}
	return 0
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Observations converts every row into a skyload.Observation. Rows produced
// by Read always convert; a hand-built table missing a required cell fails
// with a *skyload.DataFormatError.
func (t *Table) Observations() ([]skyload.Observation, error) {
	out := make([]skyload.Observation, len(t.Rows))

	for i, row := range t.Rows {
		get := func(name string, kind Kind) (Value, error) {
			v, ok := row[name]
			if !ok || v.Null {
				return Value{}, &skyload.DataFormatError{Line: t.Line(i), Column: name, Reason: "missing value"}
			}
			if v.Kind != kind {
				return Value{}, &skyload.DataFormatError{
					Line:   t.Line(i),
					Column: name,
					Reason: fmt.Sprintf("value has kind %v, want %v", v.Kind, kind),
				}
			}
			return v, nil
		}

		var (
			obs  skyload.Observation
			errs []error
		)
		take := func(name string, kind Kind) Value {
			v, err := get(name, kind)
			if err != nil {
				errs = append(errs, err)
			}
			return v
		}

		obs.ObjID = take(ColObjID, KindInt64).Int
		obs.Alpha = take(ColAlpha, KindFloat).Float
		obs.Delta = take(ColDelta, KindFloat).Float
		obs.U = take(ColU, KindFloat).Float
		obs.G = take(ColG, KindFloat).Float
		obs.R = take(ColR, KindFloat).Float
		obs.I = take(ColI, KindFloat).Float
		obs.Z = take(ColZ, KindFloat).Float
		obs.Class = take(ColClass, KindString).Str
		obs.Redshift = take(ColRedshift, KindFloat).Float
		obs.Plate = take(ColPlate, KindInt32).Int32()
		obs.MJD = take(ColMJD, KindInt32).Int32()
		obs.FiberID = take(ColFiberID, KindInt32).Int32()
		obs.SpecObjID = take(ColSpecObjID, KindUint64).Uint

		if len(errs) > 0 {
			return nil, errs[0]
		}

		obs.RunID = optionalInt32(row, ColRunID)
		obs.RerunID = optionalInt32(row, ColRerunID)
		obs.CamCol = optionalInt32(row, ColCamCol)
		obs.FieldID = optionalInt32(row, ColFieldID)

		out[i] = obs
	}

	return out, nil
}

func optionalInt32(row Row, name string) *int32 {
	v, ok := row[name]
	if !ok || v.Kind != KindInt32 {
		return nil
	}
	return v.Int32Ptr()
}
