package parser

import "testing"

func rowsFor(actuals ...int64) []RawFrame {
	rows := make([]RawFrame, 0, len(actuals))
	for _, a := range actuals {
		rows = append(rows, RawFrame{DesiredPresentTimeNs: a - 10, ActualPresentTimeNs: a, FrameReadyTimeNs: a - 5})
	}
	return rows
}

func TestWatermark_Sample(t *testing.T) {
	var w Watermark
	res := w.Sample(rowsFor(100, 100, 250, 90, 400))

	var got []int64
	for _, r := range res.Accepted {
		got = append(got, r.ActualPresentTimeNs)
	}
	want := []int64{100, 250, 400}
	if len(got) != len(want) {
		t.Fatalf("accepted = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("accepted[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if w.LatestSeen() != 400 {
		t.Errorf("LatestSeen() = %d, want 400", w.LatestSeen())
	}
	if res.Stale != 1 {
		t.Errorf("stale = %d, want 1", res.Stale)
	}
	// The second 100 equals the mark set by the first one.
	if !res.Overlap {
		t.Error("expected overlap")
	}
}

func TestWatermark_Monotonic(t *testing.T) {
	batches := [][]int64{
		{10, 20, 30},
		{20, 30, 40},
		{5, 15},
		{40, 45, 50},
		{},
		{60},
	}

	var w Watermark
	prev := w.LatestSeen()
	var maxAccepted int64
	for i, batch := range batches {
		res := w.Sample(rowsFor(batch...))
		for _, r := range res.Accepted {
			if r.ActualPresentTimeNs > maxAccepted {
				maxAccepted = r.ActualPresentTimeNs
			}
		}
		if w.LatestSeen() < prev {
			t.Fatalf("batch %d: watermark decreased from %d to %d", i, prev, w.LatestSeen())
		}
		if w.LatestSeen() != maxAccepted {
			t.Errorf("batch %d: watermark = %d, want max accepted %d", i, w.LatestSeen(), maxAccepted)
		}
		prev = w.LatestSeen()
	}
}

func TestWatermark_OverlapDetection(t *testing.T) {
	var w Watermark
	w.Sample(rowsFor(10, 20, 30))

	if res := w.Sample(rowsFor(30, 40)); !res.Overlap {
		t.Error("poll reaching back to the watermark should overlap")
	}
	if res := w.Sample(rowsFor(50, 60)); res.Overlap {
		t.Error("poll starting past the watermark should not overlap")
	}
}

func TestWatermark_PendingRowsIgnored(t *testing.T) {
	var w Watermark
	rows := []RawFrame{
		{DesiredPresentTimeNs: 1, ActualPresentTimeNs: 100, FrameReadyTimeNs: 90},
		{DesiredPresentTimeNs: 2, ActualPresentTimeNs: SentinelMax, FrameReadyTimeNs: 190},
		{DesiredPresentTimeNs: 3, ActualPresentTimeNs: 300, FrameReadyTimeNs: SentinelMax},
	}
	res := w.Sample(rows)

	if len(res.Accepted) != 1 {
		t.Fatalf("accepted = %d, want 1", len(res.Accepted))
	}
	if res.Pending != 2 {
		t.Errorf("pending = %d, want 2", res.Pending)
	}
	if w.LatestSeen() != 100 {
		t.Errorf("LatestSeen() = %d, want 100 (pending rows must not advance it)", w.LatestSeen())
	}
}

func TestWatermark_Reset(t *testing.T) {
	var w Watermark
	w.Sample(rowsFor(500))
	w.Reset()
	if w.LatestSeen() != 0 {
		t.Errorf("LatestSeen() after Reset = %d, want 0", w.LatestSeen())
	}
}
