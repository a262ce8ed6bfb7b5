package stats

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EventType identifies a workload lifecycle event.
type EventType string

const (
	// EventAppLaunch marks the moment the workload was launched.
	EventAppLaunch EventType = "app_launch"

	// EventStartLoop marks the beginning of one benchmark loop.
	EventStartLoop EventType = "start_loop"
)

// LoopEvent is one externally reported lifecycle event. Timestamps use the
// same monotonic clock as the compositor, in milliseconds.
type LoopEvent struct {
	Type        EventType `json:"type"`
	TimestampMs int64     `json:"timestamp_ms"`
}

// ParseLoopEvents reads one JSON event per line. Blank lines and lines
// starting with '#' are ignored.
func ParseLoopEvents(r io.Reader) ([]LoopEvent, error) {
	var events []LoopEvent
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var ev LoopEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		switch ev.Type {
		case EventAppLaunch, EventStartLoop:
		default:
			return nil, fmt.Errorf("line %d: unknown event type %q", lineNo, ev.Type)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// launchIndex returns the index of the first AppLaunch, or -1.
func launchIndex(events []LoopEvent) int {
	for i, ev := range events {
		if ev.Type == EventAppLaunch {
			return i
		}
	}
	return -1
}

// LoadTimeMs returns the time from the first AppLaunch to the first
// StartLoop after it, or UnknownLoadTime.
func LoadTimeMs(events []LoopEvent) int64 {
	launch := launchIndex(events)
	if launch < 0 {
		return UnknownLoadTime
	}
	for _, ev := range events[launch+1:] {
		if ev.Type == EventStartLoop {
			return ev.TimestampMs - events[launch].TimestampMs
		}
	}
	return UnknownLoadTime
}

// LoopBoundariesNs returns the StartLoop timestamps, in nanoseconds, that
// follow the first AppLaunch (or all of them when nothing was launched).
func LoopBoundariesNs(events []LoopEvent) []int64 {
	start := launchIndex(events) + 1
	var out []int64
	for _, ev := range events[start:] {
		if ev.Type == EventStartLoop {
			out = append(out, ev.TimestampMs*1_000_000)
		}
	}
	return out
}
