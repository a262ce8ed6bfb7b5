package stats

import (
	"reflect"
	"testing"

	"github.com/randomizedcoder/go-fps-collector/internal/parser"
)

// records builds present/ready pairs with ready = present - 1.
func records(presents ...int64) []parser.ElapsedRecord {
	out := make([]parser.ElapsedRecord, 0, len(presents))
	for _, p := range presents {
		out = append(out, parser.ElapsedRecord{ActualPresentTimeNs: p, FrameReadyTimeNs: p - 1})
	}
	return out
}

func TestSegmentFrameTimes(t *testing.T) {
	recs := records(50, 100, 110, 125, 200, 220, 260, 300)

	tests := []struct {
		name       string
		boundaries []int64
		want       [][]int64
	}{
		{
			name:       "no_boundaries_single_loop",
			boundaries: nil,
			want:       [][]int64{{50, 10, 15, 75, 20, 40, 40}},
		},
		{
			name:       "two_loops",
			boundaries: []int64{100, 200},
			want:       [][]int64{{10, 15}, {20, 40, 40}},
		},
		{
			name:       "boundary_is_half_open",
			boundaries: []int64{100, 125},
			want:       [][]int64{{10}, {75, 20, 40, 40}},
		},
		{
			name:       "boundary_after_last_record",
			boundaries: []int64{100, 1000},
			want:       [][]int64{{10, 15, 75, 20, 40, 40}, {}},
		},
		{
			name:       "frames_before_first_boundary_dropped",
			boundaries: []int64{210},
			want:       [][]int64{{40, 40}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentFrameTimes(recs, tt.boundaries, TimePresent)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SegmentFrameTimes = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSegmentFrameTimes_EachRecordInOneLoop(t *testing.T) {
	recs := records(10, 20, 30, 40, 50, 60, 70)
	loops := SegmentFrameTimes(recs, []int64{10, 30, 50}, TimePresent)

	// Each loop of k records yields k-1 deltas, so deltas + loops == records.
	total := 0
	for _, l := range loops {
		total += len(l) + 1
	}
	if total != len(recs) {
		t.Errorf("records accounted = %d, want %d", total, len(recs))
	}
}

func TestSegmentFrameTimes_ReadyUsesPresentSlicing(t *testing.T) {
	recs := []parser.ElapsedRecord{
		{ActualPresentTimeNs: 100, FrameReadyTimeNs: 90},
		{ActualPresentTimeNs: 120, FrameReadyTimeNs: 95},
		{ActualPresentTimeNs: 140, FrameReadyTimeNs: 130},
	}
	got := SegmentFrameTimes(recs, []int64{100}, TimeReady)
	want := [][]int64{{5, 35}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ready deltas = %v, want %v", got, want)
	}
}

func TestSegmentLoops(t *testing.T) {
	recs := records(0, 10, 20, 30, 100, 130)
	summaries := SegmentLoops(recs, []int64{0, 100}, TimePresent, func() *LoopSummaryBuilder {
		return NewLoopSummaryBuilder(0, 0)
	})

	if len(summaries) != 2 {
		t.Fatalf("loops = %d, want 2", len(summaries))
	}
	if summaries[0].Count != 3 || summaries[0].TotalDurationNs != 30 {
		t.Errorf("loop 0 = %+v, want 3 frames over 30ns", summaries[0])
	}
	if summaries[1].Count != 1 || summaries[1].MaxFrameTimeNs != 30 {
		t.Errorf("loop 1 = %+v, want 1 frame of 30ns", summaries[1])
	}
}
