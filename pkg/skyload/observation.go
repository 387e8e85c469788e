package skyload

// Observation is one survey detection, i.e. one row of the source dataset.
// ObjID repeats across observations of the same object.
type Observation struct {
	ObjID int64
	Alpha float64
	Delta float64

	// Magnitudes in the ugriz photometric system
	U, G, R, I, Z float64

	Class    string
	Redshift float64
	Plate    int32
	MJD      int32
	FiberID  int32

	// SpecObjID exceeds int64 in the published dataset.
	SpecObjID uint64

	// Imaging metadata. Nil when the column is absent from the dataset.
	RunID   *int32
	RerunID *int32
	CamCol  *int32
	FieldID *int32
}
