// Package stats computes per-loop frame-time statistics from accumulated
// compositor timestamps.
//
// Statistics are computed once, after sampling stops, over the complete
// buffer of recorded frames.
package stats

import (
	"fmt"
	"sort"
)

// TimeKind selects which timestamp channel a statistic is computed over.
type TimeKind int

const (
	// TimePresent uses the actual present time of each frame.
	TimePresent TimeKind = iota

	// TimeReady uses the time the frame's buffer became ready.
	TimeReady
)

// TimeKinds lists every kind in report order.
var TimeKinds = []TimeKind{TimePresent, TimeReady}

// String returns the lower-case name used in report keys.
func (k TimeKind) String() string {
	switch k {
	case TimePresent:
		return "present"
	case TimeReady:
		return "ready"
	default:
		return "unknown"
	}
}

// MarshalText lets TimeKind key JSON maps by name.
func (k TimeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses "present" or "ready".
func (k *TimeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "present":
		*k = TimePresent
	case "ready":
		*k = TimeReady
	default:
		return fmt.Errorf("unknown time kind %q", text)
	}
	return nil
}

// Percentiles reported for every loop.
const (
	p90 = 90
	p95 = 95
	p99 = 99
)

// targetSlackFraction of a vsync period is tolerated above the target frame
// time before a frame counts as missing it.
const targetSlackFraction = 0.1

// LoopSummary is the frame-time summary of one loop for one TimeKind.
type LoopSummary struct {
	Count             int64   `json:"count"`
	TotalDurationNs   int64   `json:"total_duration_ns"`
	JankRatePerSecond float64 `json:"jank_rate_per_second"`
	MinFrameTimeNs    int64   `json:"min_frame_time_ns"`
	MaxFrameTimeNs    int64   `json:"max_frame_time_ns"`
	AvgFrameTimeNs    int64   `json:"avg_frame_time_ns"`
	P90Ns             int64   `json:"p90_ns"`
	P95Ns             int64   `json:"p95_ns"`
	P99Ns             int64   `json:"p99_ns"`
	TargetFraction    float64 `json:"target_fraction"`
}

// LoopSummaryBuilder accumulates frame times for one loop.
type LoopSummaryBuilder struct {
	targetFrameTimeNs int64
	vsyncPeriodNs     int64

	totalTimeNs int64
	jankScore   float64
	frameTimes  []int64
}

// NewLoopSummaryBuilder creates a builder. A zero target or vsync period
// disables jank scoring; a zero target also disables the target fraction.
func NewLoopSummaryBuilder(targetFrameTimeNs, vsyncPeriodNs int64) *LoopSummaryBuilder {
	return &LoopSummaryBuilder{
		targetFrameTimeNs: targetFrameTimeNs,
		vsyncPeriodNs:     vsyncPeriodNs,
	}
}

// AddFrameTime records one frame-time delta.
func (b *LoopSummaryBuilder) AddFrameTime(deltaNs int64) {
	b.totalTimeNs += deltaNs
	b.frameTimes = append(b.frameTimes, deltaNs)

	if b.targetFrameTimeNs <= 0 || b.vsyncPeriodNs <= 0 {
		return
	}
	// A frame is displayed for a whole number of vsync periods.
	rounded := roundToMultiple(deltaNs, b.vsyncPeriodNs)
	if rounded > b.targetFrameTimeNs {
		b.jankScore += float64(rounded-b.targetFrameTimeNs) / float64(b.targetFrameTimeNs)
	}
}

// Len returns the number of frame times recorded.
func (b *LoopSummaryBuilder) Len() int {
	return len(b.frameTimes)
}

// Build computes the summary. The builder can keep accumulating afterwards.
func (b *LoopSummaryBuilder) Build() LoopSummary {
	n := len(b.frameTimes)
	if n == 0 {
		return LoopSummary{}
	}

	sorted := make([]int64, n)
	copy(sorted, b.frameTimes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	s := LoopSummary{
		Count:           int64(n),
		TotalDurationNs: b.totalTimeNs,
		MinFrameTimeNs:  sorted[0],
		MaxFrameTimeNs:  sorted[n-1],
		AvgFrameTimeNs:  b.totalTimeNs / int64(n),
		P90Ns:           sorted[percentileIndex(n, p90)],
		P95Ns:           sorted[percentileIndex(n, p95)],
		P99Ns:           sorted[percentileIndex(n, p99)],
	}
	if b.totalTimeNs != 0 {
		s.JankRatePerSecond = b.jankScore * 1e9 / float64(b.totalTimeNs)
	}
	if b.targetFrameTimeNs > 0 {
		slack := int64(targetSlackFraction * float64(b.vsyncPeriodNs))
		limit := b.targetFrameTimeNs + slack
		onTarget := sort.Search(n, func(i int) bool { return sorted[i] > limit })
		s.TargetFraction = float64(onTarget) / float64(n)
	}
	return s
}

// percentileIndex returns ceil(n*pct/100)-1 clamped to [0, n-1]. Integer
// arithmetic keeps the ceiling exact for every n.
func percentileIndex(n, pct int) int {
	idx := (n*pct+99)/100 - 1
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// roundToMultiple rounds v to the nearest multiple of m (m > 0).
func roundToMultiple(v, m int64) int64 {
	return ((v + m/2) / m) * m
}
