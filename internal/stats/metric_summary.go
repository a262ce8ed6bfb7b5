package stats

import (
	"fmt"

	"github.com/randomizedcoder/go-fps-collector/internal/report"
)

// Report keys and labels.
const (
	KeyLoopCount = "loop_count"
	KeyLoadTime  = "load_time"

	LabelCount          = "frame_count"
	LabelTotalDuration  = "total_duration"
	LabelJankRate       = "jank_rate"
	LabelMinFrameTime   = "min_frame_time"
	LabelMaxFrameTime   = "max_frame_time"
	LabelAvgFrameTime   = "avg_frame_time"
	LabelP90            = "frame_time_90_percentile"
	LabelP95            = "frame_time_95_percentile"
	LabelP99            = "frame_time_99_percentile"
	LabelTargetFraction = "target_frame_time_fraction"
)

// UnknownLoadTime is reported when no launch/start-loop pair was seen.
const UnknownLoadTime int64 = -1

// MetricSummary aggregates every loop of one run for both time kinds.
type MetricSummary struct {
	LoopCount  int                        `json:"loop_count"`
	LoadTimeMs int64                      `json:"load_time_ms"`
	Summaries  map[TimeKind][]LoopSummary `json:"summaries"`
}

// Loop returns the summary of loop i for kind, or a zero summary when out
// of range.
func (m MetricSummary) Loop(kind TimeKind, i int) LoopSummary {
	loops := m.Summaries[kind]
	if i < 0 || i >= len(loops) {
		return LoopSummary{}
	}
	return loops[i]
}

// MetricSummaryBuilder assembles a MetricSummary loop by loop.
type MetricSummaryBuilder struct {
	loadTimeMs int64
	summaries  map[TimeKind][]LoopSummary
}

// NewMetricSummaryBuilder returns a builder with an unknown load time.
func NewMetricSummaryBuilder() *MetricSummaryBuilder {
	b := &MetricSummaryBuilder{
		loadTimeMs: UnknownLoadTime,
		summaries:  make(map[TimeKind][]LoopSummary, len(TimeKinds)),
	}
	for _, kind := range TimeKinds {
		b.summaries[kind] = []LoopSummary{}
	}
	return b
}

// SetLoadTimeMs sets the app load time.
func (b *MetricSummaryBuilder) SetLoadTimeMs(ms int64) *MetricSummaryBuilder {
	b.loadTimeMs = ms
	return b
}

// AddLoopSummary appends the next loop's summary for kind.
func (b *MetricSummaryBuilder) AddLoopSummary(kind TimeKind, s LoopSummary) *MetricSummaryBuilder {
	b.summaries[kind] = append(b.summaries[kind], s)
	return b
}

// Build returns the summary. Every kind must have the same number of loops.
func (b *MetricSummaryBuilder) Build() (MetricSummary, error) {
	loopCount := len(b.summaries[TimeKinds[0]])
	out := MetricSummary{
		LoopCount:  loopCount,
		LoadTimeMs: b.loadTimeMs,
		Summaries:  make(map[TimeKind][]LoopSummary, len(TimeKinds)),
	}
	for _, kind := range TimeKinds {
		loops := b.summaries[kind]
		if len(loops) != loopCount {
			return MetricSummary{}, fmt.Errorf("%s has %d loops, %s has %d",
				kind, len(loops), TimeKinds[0], loopCount)
		}
		out.Summaries[kind] = append([]LoopSummary(nil), loops...)
	}
	return out, nil
}

// ToReport flattens the summary into report keys.
func (m MetricSummary) ToReport() report.Report {
	r := report.Report{
		KeyLoopCount: report.IntValue(int64(m.LoopCount), report.UnitNone, false),
		KeyLoadTime:  report.IntValue(m.LoadTimeMs, report.UnitMilliseconds, true),
	}

	for _, kind := range TimeKinds {
		for i, s := range m.Summaries[kind] {
			k := kind.String()
			r[report.RunKey(i, k, LabelCount)] = report.IntValue(s.Count, report.UnitNone, false)
			r[report.RunKey(i, k, LabelTotalDuration)] = report.IntValue(s.TotalDurationNs, report.UnitNanoseconds, false)
			r[report.RunKey(i, k, LabelJankRate)] = report.DoubleValue(s.JankRatePerSecond, report.UnitPerSecond, true)
			r[report.RunKey(i, k, LabelMinFrameTime)] = report.IntValue(s.MinFrameTimeNs, report.UnitNanoseconds, true)
			r[report.RunKey(i, k, LabelMaxFrameTime)] = report.IntValue(s.MaxFrameTimeNs, report.UnitNanoseconds, true)
			r[report.RunKey(i, k, LabelAvgFrameTime)] = report.IntValue(s.AvgFrameTimeNs, report.UnitNanoseconds, true)
			r[report.RunKey(i, k, LabelP90)] = report.IntValue(s.P90Ns, report.UnitNanoseconds, true)
			r[report.RunKey(i, k, LabelP95)] = report.IntValue(s.P95Ns, report.UnitNanoseconds, true)
			r[report.RunKey(i, k, LabelP99)] = report.IntValue(s.P99Ns, report.UnitNanoseconds, true)
			r[report.RunKey(i, k, LabelTargetFraction)] = report.DoubleValue(s.TargetFraction, report.UnitFraction, false)
		}
	}
	return r
}

// FromReport rebuilds a MetricSummary from report keys written by ToReport.
func FromReport(r report.Report) (MetricSummary, error) {
	loopCount, err := r.Int(KeyLoopCount)
	if err != nil {
		return MetricSummary{}, err
	}
	if loopCount < 0 {
		return MetricSummary{}, fmt.Errorf("invalid %s %d", KeyLoopCount, loopCount)
	}
	loadTime, err := r.Int(KeyLoadTime)
	if err != nil {
		return MetricSummary{}, err
	}

	b := NewMetricSummaryBuilder().SetLoadTimeMs(loadTime)
	for _, kind := range TimeKinds {
		for i := 0; i < int(loopCount); i++ {
			s, err := loopFromReport(r, i, kind.String())
			if err != nil {
				return MetricSummary{}, err
			}
			b.AddLoopSummary(kind, s)
		}
	}
	return b.Build()
}

// loopFromReport reads the ten values of one loop/kind.
func loopFromReport(r report.Report, loop int, kind string) (LoopSummary, error) {
	var s LoopSummary
	ints := []struct {
		label string
		dst   *int64
	}{
		{LabelCount, &s.Count},
		{LabelTotalDuration, &s.TotalDurationNs},
		{LabelMinFrameTime, &s.MinFrameTimeNs},
		{LabelMaxFrameTime, &s.MaxFrameTimeNs},
		{LabelAvgFrameTime, &s.AvgFrameTimeNs},
		{LabelP90, &s.P90Ns},
		{LabelP95, &s.P95Ns},
		{LabelP99, &s.P99Ns},
	}
	for _, f := range ints {
		v, err := r.Int(report.RunKey(loop, kind, f.label))
		if err != nil {
			return LoopSummary{}, err
		}
		*f.dst = v
	}

	var err error
	if s.JankRatePerSecond, err = r.Double(report.RunKey(loop, kind, LabelJankRate)); err != nil {
		return LoopSummary{}, err
	}
	if s.TargetFraction, err = r.Double(report.RunKey(loop, kind, LabelTargetFraction)); err != nil {
		return LoopSummary{}, err
	}
	return s, nil
}
