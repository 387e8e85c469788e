package skyload

// ProgressObserver receives progress after every committed batch.
// written counts tuples committed to table so far; total is the number of
// tuples the current write will submit.
type ProgressObserver interface {
	Progress(table string, written, total int)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(table string, written, total int)

// Progress calls f(table, written, total).
func (f ProgressFunc) Progress(table string, written, total int) {
	f(table, written, total)
}
