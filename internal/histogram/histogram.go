package histogram

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// DefaultBarWidth is the bar width used when the caller passes <= 0.
const DefaultBarWidth = 50

// Histogram counts values into fixed-width buckets, with optional
// underflow/overflow bins beyond the cutoffs.
//
// After counting, every occupied range bucket is followed by an empty
// spacer bucket so that the rendered chart shows where each range ends.
// Spacers never change Total().
type Histogram struct {
	bucketSize int64
	minCutoff  *int64
	maxCutoff  *int64

	counts map[Bucket]int
	total  int
}

// New builds a histogram over values. bucketSize must be positive; values
// below *minCutoff land in Underflow and values above *maxCutoff in
// Overflow. Either cutoff may be nil.
func New(values []int64, bucketSize int64, minCutoff, maxCutoff *int64) *Histogram {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	h := &Histogram{
		bucketSize: bucketSize,
		minCutoff:  minCutoff,
		maxCutoff:  maxCutoff,
		counts:     make(map[Bucket]int),
	}

	for _, v := range values {
		h.counts[h.bucketFor(v)]++
		h.total++
	}
	h.addSpacers()
	return h
}

// bucketFor maps a value to its bucket.
func (h *Histogram) bucketFor(v int64) Bucket {
	if h.minCutoff != nil && v < *h.minCutoff {
		return Underflow
	}
	if h.maxCutoff != nil && v > *h.maxCutoff {
		return Overflow
	}
	return Range(h.rangeStart(v))
}

// rangeStart applies the bucket formula. Integer division truncates toward
// zero, so negative values round the same way the compositor tooling does.
func (h *Histogram) rangeStart(v int64) int64 {
	half := h.bucketSize / 2
	return h.bucketSize*((v+half)/h.bucketSize) - half
}

func (h *Histogram) addSpacers() {
	occupied := make([]Bucket, 0, len(h.counts))
	for b := range h.counts {
		occupied = append(occupied, b)
	}

	for _, b := range occupied {
		var next Bucket
		switch b.Kind {
		case KindOverflow:
			continue
		case KindUnderflow:
			next = Range(h.rangeStart(*h.minCutoff))
		default:
			next = Range(b.Start + h.bucketSize)
		}
		if _, ok := h.counts[next]; !ok {
			h.counts[next] = 0
		}
	}
}

// BucketSize returns the width of a range bucket.
func (h *Histogram) BucketSize() int64 {
	return h.bucketSize
}

// Total returns the number of values counted.
func (h *Histogram) Total() int {
	return h.total
}

// Counts returns every bucket, spacers included, in ascending order.
func (h *Histogram) Counts() []Count {
	out := make([]Count, 0, len(h.counts))
	for b, c := range h.counts {
		out = append(out, Count{Bucket: b, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Bucket.Less(out[j].Bucket)
	})
	return out
}

// displayKey returns the value printed for a bucket; sentinels show their
// cutoff.
func (h *Histogram) displayKey(b Bucket) int64 {
	switch b.Kind {
	case KindUnderflow:
		return *h.minCutoff
	case KindOverflow:
		return *h.maxCutoff
	default:
		return b.Start
	}
}

// marker returns the leading character of a rendered line.
func marker(b Bucket) byte {
	switch b.Kind {
	case KindUnderflow:
		return '<'
	case KindOverflow:
		return '>'
	default:
		return ' '
	}
}

// PlotASCII writes one line per bucket:
//
//	 15 |==========          |   12  40.00%  40.00%
//
// The longest bar is maxBarWidth characters. An empty histogram writes
// nothing.
func (h *Histogram) PlotASCII(w io.Writer, maxBarWidth int) error {
	if h.total == 0 {
		return nil
	}
	if maxBarWidth <= 0 {
		maxBarWidth = DefaultBarWidth
	}

	counts := h.Counts()

	maxCount := 0
	keyWidth := 1
	for _, c := range counts {
		if c.Count > maxCount {
			maxCount = c.Count
		}
		if n := len(strconv.FormatInt(h.displayKey(c.Bucket), 10)); n > keyWidth {
			keyWidth = n
		}
	}
	countWidth := len(strconv.Itoa(maxCount))

	var b strings.Builder
	cumulative := 0
	for _, c := range counts {
		cumulative += c.Count
		barLen := 0
		if maxCount > 0 {
			barLen = c.Count * maxBarWidth / maxCount
		}
		pct := float64(c.Count) * 100 / float64(h.total)
		cumPct := float64(cumulative) * 100 / float64(h.total)

		fmt.Fprintf(&b, "%c%*d |%-*s| %*d %6.2f%% %6.2f%%\n",
			marker(c.Bucket),
			keyWidth, h.displayKey(c.Bucket),
			maxBarWidth, strings.Repeat("=", barLen),
			countWidth, c.Count,
			pct,
			cumPct,
		)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
