package parser

// ElapsedRecord is one newly composited frame. Records are append-only.
type ElapsedRecord struct {
	ActualPresentTimeNs int64
	FrameReadyTimeNs    int64
}

// SampleResult describes what one dump contributed.
type SampleResult struct {
	// Accepted holds the new frames in dump order.
	Accepted []ElapsedRecord

	// Pending counts rows the compositor had not finished yet.
	Pending int

	// Stale counts rows already recorded by an earlier poll.
	Stale int

	// Overlap is true when a row equal to the previous watermark was seen,
	// i.e. this poll overlapped the previous one and no frame was lost
	// between them.
	Overlap bool
}

// Watermark deduplicates frames across successive dumps. The compositor
// keeps a ring of recent frames, so consecutive polls return overlapping
// windows; only frames newer than the latest one seen are new.
//
// Watermark is not safe for concurrent use; the collector guards it.
type Watermark struct {
	latestSeen int64
}

// LatestSeen returns the highest actual-present timestamp recorded so far.
func (w *Watermark) LatestSeen() int64 {
	return w.latestSeen
}

// Reset clears the watermark for a new run.
func (w *Watermark) Reset() {
	w.latestSeen = 0
}

// Sample applies the dedup rules to a batch of rows and advances the mark.
func (w *Watermark) Sample(rows []RawFrame) SampleResult {
	var res SampleResult
	for _, row := range rows {
		switch {
		case row.Pending():
			res.Pending++
		case row.ActualPresentTimeNs < w.latestSeen:
			res.Stale++
		case row.ActualPresentTimeNs == w.latestSeen:
			// Same frame as the last one recorded; the dump still
			// reaches back far enough.
			res.Overlap = true
		default:
			res.Accepted = append(res.Accepted, ElapsedRecord{
				ActualPresentTimeNs: row.ActualPresentTimeNs,
				FrameReadyTimeNs:    row.FrameReadyTimeNs,
			})
			w.latestSeen = row.ActualPresentTimeNs
		}
	}
	return res
}
