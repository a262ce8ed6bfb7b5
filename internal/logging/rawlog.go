package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a buffered line before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the number of recent lines kept for error context.
	MaxBufferedLines = 100

	// AnnotationPrefix starts every line the collector adds to the raw log.
	AnnotationPrefix = "# "
)

// RawSampleLog accumulates every dump verbatim, interleaved with
// annotation lines, and keeps the most recent lines in memory.
//
// Writes go to an optional io.Writer. The first write error is kept and
// later writes are skipped; the in-memory buffer keeps working.
type RawSampleLog struct {
	w      io.Writer
	logger *slog.Logger

	mu     sync.Mutex
	buffer []string
	bufIdx int
	dumps  int
	bytes  int64
	err    error
}

// NewRawSampleLog creates a raw sample log writing to w. A nil w keeps only
// the recent-lines buffer.
func NewRawSampleLog(w io.Writer, logger *slog.Logger) *RawSampleLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &RawSampleLog{
		w:      w,
		logger: logger,
		buffer: make([]string, MaxBufferedLines),
	}
}

// AppendDump records one dump exactly as received.
func (l *RawSampleLog) AppendDump(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dumps++
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	l.write(text)
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		l.remember(line)
	}
}

// Annotate adds one annotation line.
func (l *RawSampleLog) Annotate(format string, args ...any) {
	line := AnnotationPrefix + fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(line + "\n")
	l.remember(line)
}

// write must be called with mu held.
func (l *RawSampleLog) write(s string) {
	if l.w == nil || l.err != nil || s == "" {
		return
	}
	n, err := io.WriteString(l.w, s)
	l.bytes += int64(n)
	if err != nil {
		l.err = err
		l.logger.Warn("raw_sample_log_write_failed", "error", err)
	}
}

// remember must be called with mu held.
func (l *RawSampleLog) remember(line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}
	l.buffer[l.bufIdx] = line
	l.bufIdx = (l.bufIdx + 1) % MaxBufferedLines
}

// RecentLines returns up to n of the most recent lines, oldest first.
func (l *RawSampleLog) RecentLines(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if l.buffer[idx] != "" {
			lines = append(lines, l.buffer[idx])
		}
	}
	return lines
}

// Dumps returns the number of dumps appended.
func (l *RawSampleLog) Dumps() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dumps
}

// BytesWritten returns the number of bytes written to the underlying writer.
func (l *RawSampleLog) BytesWritten() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bytes
}

// Err returns the first write error, if any.
func (l *RawSampleLog) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
