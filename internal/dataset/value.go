package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

var errEmptyValue = errors.New("empty value")

// Value is one typed cell. Exactly one of the payload fields is meaningful,
// selected by Kind. Null is set for an empty optional cell.
type Value struct {
	Kind  Kind
	Null  bool
	Str   string
	Float float64
	Int   int64
	Uint  uint64
}

// Int32 returns the value of a KindInt32 cell.
func (v Value) Int32() int32 {
	return int32(v.Int)
}

// Int32Ptr returns nil for a null cell, otherwise a pointer to Int32().
func (v Value) Int32Ptr() *int32 {
	if v.Null {
		return nil
	}
	i := v.Int32()
	return &i
}

func (v Value) String() string {
	if v.Null {
		return ""
	}
	switch v.Kind {
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindInt32, KindInt64:
		return strconv.FormatInt(v.Int, 10)
	case KindUint64:
		return strconv.FormatUint(v.Uint, 10)
	default:
		return v.Str
	}
}

// ParseValue parses raw into a Value of kind. An empty cell is an error
// unless the column is optional, in which case it yields a null Value.
func ParseValue(raw string, kind Kind, required bool) (Value, error) {
	s := strings.TrimSpace(raw)
	v := Value{Kind: kind}

	if kind == KindString {
		if s == "" && required {
			return v, errEmptyValue
		}
		v.Str = s
		return v, nil
	}

	if s == "" {
		if required {
			return v, errEmptyValue
		}
		v.Null = true
		return v, nil
	}

	switch kind {
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return v, fmt.Errorf("%q is not a number", raw)
		}
		v.Float = f

	case KindInt32, KindInt64:
		n, err := parseIntegral(s)
		if err != nil {
			return v, err
		}
		if !n.IsInt64() {
			return v, fmt.Errorf("%q overflows %s", raw, kind)
		}
		i := n.Int64()
		if kind == KindInt32 && (i < math.MinInt32 || i > math.MaxInt32) {
			return v, fmt.Errorf("%q overflows %s", raw, kind)
		}
		v.Int = i

	case KindUint64:
		n, err := parseIntegral(s)
		if err != nil {
			return v, err
		}
		if !n.IsUint64() {
			return v, fmt.Errorf("%q is out of range for %s", raw, kind)
		}
		v.Uint = n.Uint64()

	default:
		return v, fmt.Errorf("unsupported column kind %v", kind)
	}

	return v, nil
}

// maxIntegralBits bounds the magnitude parseIntegral will expand. Nothing
// wider than 64 bits fits any integral kind.
const maxIntegralBits = 64

// parseIntegral accepts a decimal integer or a number in scientific
// notation whose value is integral ("1.237660961327743e+18"). Values of
// 2^64 or more in scientific notation are rejected before expansion.
func parseIntegral(s string) (*big.Int, error) {
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n, nil
	}

	f, _, err := big.ParseFloat(s, 10, 256, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	if f.IsInf() || f.MantExp(nil) > maxIntegralBits {
		return nil, fmt.Errorf("%q is out of range", s)
	}
	if !f.IsInt() {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	n, _ := f.Int(nil)
	return n, nil
}
