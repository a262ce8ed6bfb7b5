package stats

import (
	"github.com/randomizedcoder/go-fps-collector/internal/parser"
)

// timestamp returns the channel of r selected by kind.
func timestamp(r parser.ElapsedRecord, kind TimeKind) int64 {
	if kind == TimeReady {
		return r.FrameReadyTimeNs
	}
	return r.ActualPresentTimeNs
}

// SegmentFrameTimes splits records into loops and returns the frame-time
// deltas of each loop.
//
// Loop i covers present timestamps in [boundaries[i], boundaries[i+1]); the
// last loop runs up to and including the last record. Records before the
// first boundary are load time and belong to no loop. With no boundaries
// the whole buffer is a single loop.
//
// Slicing always uses the present timestamp so that both kinds see the same
// frames per loop; kind only selects which timestamps are differenced.
// Deltas are taken between consecutive records inside one loop.
func SegmentFrameTimes(records []parser.ElapsedRecord, boundariesNs []int64, kind TimeKind) [][]int64 {
	loopCount := len(boundariesNs)
	if loopCount == 0 {
		loopCount = 1
	}
	out := make([][]int64, loopCount)
	for i := range out {
		out[i] = []int64{}
	}

	loop := -1
	if len(boundariesNs) == 0 {
		loop = 0
	}
	var prev int64
	havePrev := false

	for _, r := range records {
		t := r.ActualPresentTimeNs
		for loop+1 < len(boundariesNs) && t >= boundariesNs[loop+1] {
			loop++
			havePrev = false
		}
		if loop < 0 {
			continue
		}

		ts := timestamp(r, kind)
		if havePrev {
			out[loop] = append(out[loop], ts-prev)
		}
		prev = ts
		havePrev = true
	}
	return out
}

// SegmentLoops segments records and summarises every loop.
func SegmentLoops(records []parser.ElapsedRecord, boundariesNs []int64, kind TimeKind, newBuilder func() *LoopSummaryBuilder) []LoopSummary {
	return SummarizeLoops(SegmentFrameTimes(records, boundariesNs, kind), newBuilder)
}

// SummarizeLoops feeds each loop's frame times into a fresh builder and
// returns one summary per loop.
func SummarizeLoops(loops [][]int64, newBuilder func() *LoopSummaryBuilder) []LoopSummary {
	out := make([]LoopSummary, 0, len(loops))
	for _, frameTimes := range loops {
		b := newBuilder()
		for _, ft := range frameTimes {
			b.AddFrameTime(ft)
		}
		out = append(out, b.Build())
	}
	return out
}
