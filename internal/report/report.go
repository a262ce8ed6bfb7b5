// Package report defines the flat key-value metric report handed to the
// benchmark harness at the end of a run.
//
// Keys look like "loop_count", "load_time" or "run_0.present_jank_rate".
// Every value is a single integer or a single double carrying a unit and
// an optimisation direction.
package report

import (
	"errors"
	"fmt"
	"sort"
)

// Kind tells whether a Value holds an integer or a double.
type Kind int

const (
	// KindInt is a single int64 value.
	KindInt Kind = iota

	// KindDouble is a single float64 value.
	KindDouble
)

// String returns "int" or "double".
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	default:
		return "unknown"
	}
}

// Units used by the frame-time report.
const (
	UnitNone         = ""
	UnitNanoseconds  = "ns"
	UnitMilliseconds = "ms"
	UnitPerSecond    = "per_second"
	UnitFraction     = "fraction"
)

// Value is one report entry.
type Value struct {
	Kind          Kind    `json:"kind"`
	Int           int64   `json:"int,omitempty"`
	Double        float64 `json:"double,omitempty"`
	Unit          string  `json:"unit,omitempty"`
	LowerIsBetter bool    `json:"lower_is_better,omitempty"`
}

// IntValue builds an integer entry.
func IntValue(v int64, unit string, lowerIsBetter bool) Value {
	return Value{Kind: KindInt, Int: v, Unit: unit, LowerIsBetter: lowerIsBetter}
}

// DoubleValue builds a double entry.
func DoubleValue(v float64, unit string, lowerIsBetter bool) Value {
	return Value{Kind: KindDouble, Double: v, Unit: unit, LowerIsBetter: lowerIsBetter}
}

// Float returns the value as float64 regardless of kind.
func (v Value) Float() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Double
}

// ErrMissingKey is returned when a required key is absent.
var ErrMissingKey = errors.New("missing report key")

// ErrWrongKind is returned when a key holds the other value kind.
var ErrWrongKind = errors.New("wrong report value kind")

// Report is the flat key-value map.
type Report map[string]Value

// Keys returns all keys in sorted order.
func (r Report) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int returns the integer stored under key.
func (r Report) Int(key string) (int64, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	if v.Kind != KindInt {
		return 0, fmt.Errorf("%w: %s is %s", ErrWrongKind, key, v.Kind)
	}
	return v.Int, nil
}

// Double returns the double stored under key.
func (r Report) Double(key string) (float64, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	if v.Kind != KindDouble {
		return 0, fmt.Errorf("%w: %s is %s", ErrWrongKind, key, v.Kind)
	}
	return v.Double, nil
}

// RunKey builds "run_<loop>.<kind>_<label>".
func RunKey(loop int, kind, label string) string {
	return fmt.Sprintf("run_%d.%s_%s", loop, kind, label)
}
