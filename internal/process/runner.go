// Package process runs the external commands that produce compositor
// latency dumps.
package process

import (
	"context"
)

// DumpSource returns one raw latency dump per call.
// This interface keeps the collector independent of how dumps are obtained.
type DumpSource interface {
	// Dump runs one poll and returns the dump text verbatim.
	Dump(ctx context.Context) (string, error)

	// Name returns a human-readable name for this source.
	Name() string
}

// Clearer is implemented by sources that can reset the compositor's
// latency history before a run.
type Clearer interface {
	Clear(ctx context.Context) error
}
