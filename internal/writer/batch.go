package writer

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Span is a contiguous run of tuples [Offset, Offset+Len).
type Span struct {
	Offset int
	Len    int
}

// Partition splits n tuples into contiguous spans of size, the last of
// which holds the remainder. It returns nil for n == 0.
func Partition(n, size int) []Span {
	if n <= 0 || size <= 0 {
		return nil
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for off := 0; off < n; off += size {
		spans = append(spans, Span{Offset: off, Len: min(size, n-off)})
	}
	return spans
}

// fold collapses tuples sharing a conflict key so one statement never
// touches a row twice. Each key keeps the position of its first occurrence
// and the values of its last, which leaves the table in the same state as
// upserting the tuples one at a time.
func fold(tuples [][]any, keyIdx []int) [][]any {
	positions := make(map[string]int, len(tuples))
	out := make([][]any, 0, len(tuples))

	for _, tuple := range tuples {
		key := conflictKey(tuple, keyIdx)
		if pos, ok := positions[key]; ok {
			out[pos] = tuple
			continue
		}
		positions[key] = len(out)
		out = append(out, tuple)
	}
	return out
}

// conflictKey renders the conflict columns of tuple as a map key. Values
// implementing driver.Valuer (pgtype.Numeric and friends) are keyed by
// their driver value so equal numbers compare equal.
func conflictKey(tuple []any, keyIdx []int) string {
	var b strings.Builder
	for _, i := range keyIdx {
		v := tuple[i]
		if valuer, ok := v.(driver.Valuer); ok {
			if dv, err := valuer.Value(); err == nil {
				v = dv
			}
		}
		fmt.Fprintf(&b, "%T:%v\x00", v, v)
	}
	return b.String()
}
