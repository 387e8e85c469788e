package dataset

// Kind is the type a column's values are parsed into.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindInt32
	KindInt64
	KindUint64
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	default:
		return "unknown"
	}
}

// Column describes one known dataset column.
type Column struct {
	Name     string
	Kind     Kind
	Required bool
}

// Header names as they appear in the survey file. Names are case-sensitive.
const (
	ColObjID     = "obj_ID"
	ColAlpha     = "alpha"
	ColDelta     = "delta"
	ColU         = "u"
	ColG         = "g"
	ColR         = "r"
	ColI         = "i"
	ColZ         = "z"
	ColClass     = "class"
	ColRedshift  = "redshift"
	ColPlate     = "plate"
	ColMJD       = "MJD"
	ColFiberID   = "fiber_ID"
	ColSpecObjID = "spec_obj_ID"
	ColRunID     = "run_ID"
	ColRerunID   = "rerun_ID"
	ColCamCol    = "cam_col"
	ColFieldID   = "field_ID"
)

// Columns lists every column the loader understands. Columns not listed
// here are kept as strings and otherwise ignored.
var Columns = []Column{
	{ColObjID, KindInt64, true},
	{ColAlpha, KindFloat, true},
	{ColDelta, KindFloat, true},
	{ColU, KindFloat, true},
	{ColG, KindFloat, true},
	{ColR, KindFloat, true},
	{ColI, KindFloat, true},
	{ColZ, KindFloat, true},
	{ColClass, KindString, true},
	{ColRedshift, KindFloat, true},
	{ColPlate, KindInt32, true},
	{ColMJD, KindInt32, true},
	{ColFiberID, KindInt32, true},
	{ColSpecObjID, KindUint64, true},
	{ColRunID, KindInt32, false},
	{ColRerunID, KindInt32, false},
	{ColCamCol, KindInt32, false},
	{ColFieldID, KindInt32, false},
}

var columnsByName = func() map[string]Column {
	m := make(map[string]Column, len(Columns))
	for _, c := range Columns {
		m[c.Name] = c
	}
	return m
}()

// LookupColumn returns the known column named name. Unknown columns are
// reported as optional strings.
func LookupColumn(name string) (Column, bool) {
	c, ok := columnsByName[name]
	if !ok {
		return Column{Name: name, Kind: KindString}, false
	}
	return c, true
}

// RequiredColumns returns the names of all required columns in schema order.
func RequiredColumns() []string {
	var names []string
	for _, c := range Columns {
		if c.Required {
			names = append(names, c.Name)
		}
	}
	return names
}
