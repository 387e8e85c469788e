package skyload

import "context"

// Loader is the main interface for executing a bulk load.
// Implementations handle the full workflow: connection, schema
// initialization, dataset reading, normalization and batched writes.
type Loader interface {
	// Load runs one load pass. The report is non-nil even on failure and
	// lists the tables that completed before the error.
	Load(ctx context.Context, config LoadConfig) (*LoadReport, error)
}

// DatasetReader reads a whole dataset into memory.
type DatasetReader interface {
	// ReadObservations parses every row of the file at path.
	// It fails with a *DataFormatError and returns no rows on any problem.
	ReadObservations(path string) ([]Observation, error)
}
