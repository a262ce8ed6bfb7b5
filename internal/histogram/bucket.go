// Package histogram buckets frame times and renders them as ASCII or HTML
// bar charts.
package histogram

import "strconv"

// BucketKind tags a Bucket.
type BucketKind int

const (
	// KindUnderflow collects values below the min cutoff.
	KindUnderflow BucketKind = iota

	// KindRange is a regular fixed-width bucket.
	KindRange

	// KindOverflow collects values above the max cutoff.
	KindOverflow
)

// Bucket identifies one histogram bin.
type Bucket struct {
	Kind  BucketKind
	Start int64 // only meaningful for KindRange
}

// Underflow is the bucket for values below the min cutoff.
var Underflow = Bucket{Kind: KindUnderflow}

// Overflow is the bucket for values above the max cutoff.
var Overflow = Bucket{Kind: KindOverflow}

// Range returns the regular bucket starting at start.
func Range(start int64) Bucket {
	return Bucket{Kind: KindRange, Start: start}
}

// Less orders buckets: Underflow first, ranges by start, Overflow last.
func (b Bucket) Less(o Bucket) bool {
	if b.Kind != o.Kind {
		return b.Kind < o.Kind
	}
	return b.Kind == KindRange && b.Start < o.Start
}

// String returns a short label for logs and tests.
func (b Bucket) String() string {
	switch b.Kind {
	case KindUnderflow:
		return "underflow"
	case KindOverflow:
		return "overflow"
	default:
		return strconv.FormatInt(b.Start, 10)
	}
}

// Count is one bucket with its number of values.
type Count struct {
	Bucket Bucket
	Count  int
}
