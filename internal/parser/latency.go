// Package parser turns compositor latency dumps into frame records.
//
// A dump is the text printed by the diagnostic interface on every poll:
//
//	16666666
//	1000	1100	1050
//	2000	2100	2050
//
// Line 0 is the vsync period in nanoseconds. Every following line is a
// tab-separated (desiredPresent, actualPresent, frameReady) triple. Rows that
// don't have exactly three integer fields are skipped, never fatal.
package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SentinelMax marks a timestamp the compositor has not filled in yet.
const SentinelMax int64 = math.MaxInt64

// RawFrame is one data row of a latency dump.
type RawFrame struct {
	DesiredPresentTimeNs int64
	ActualPresentTimeNs  int64
	FrameReadyTimeNs     int64
}

// Pending reports whether the compositor has not finished this frame yet.
func (f RawFrame) Pending() bool {
	return f.ActualPresentTimeNs == SentinelMax || f.FrameReadyTimeNs == SentinelMax
}

// Dump is the parsed form of one diagnostic dump.
type Dump struct {
	// Header is line 0, kept unparsed until the collector needs it.
	Header string

	// Rows holds every well-formed data row in dump order.
	Rows []RawFrame

	// Skipped counts malformed rows.
	Skipped int

	// Lines is the number of non-empty lines, header included.
	Lines int
}

// HasData reports whether the dump carried at least one data row
// (well-formed or not). A header-only dump means no layer is composited.
func (d Dump) HasData() bool {
	return d.Lines > 1
}

// VsyncPeriod parses the header line.
func (d Dump) VsyncPeriod() (int64, error) {
	header := strings.TrimSpace(d.Header)
	if header == "" {
		return 0, fmt.Errorf("missing vsync period header")
	}
	v, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid vsync period %q: %w", header, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid vsync period %d", v)
	}
	return v, nil
}

// rowOutcome is the per-row result folded by ParseDump.
type rowOutcome int

const (
	rowOK rowOutcome = iota
	rowWrongFieldCount
	rowBadInteger
)

// ParseDump parses one dump. It never fails; malformed rows only bump
// Dump.Skipped.
func ParseDump(text string) Dump {
	lines := strings.Split(strings.TrimRight(text, "\r\n\t "), "\n")

	var d Dump
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if i == 0 {
			d.Header = line
			if strings.TrimSpace(line) != "" {
				d.Lines++
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		d.Lines++

		frame, outcome := parseRow(line)
		if outcome != rowOK {
			d.Skipped++
			continue
		}
		d.Rows = append(d.Rows, frame)
	}
	return d
}

// parseRow splits a data row on whitespace and parses the three timestamps.
func parseRow(line string) (RawFrame, rowOutcome) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return RawFrame{}, rowWrongFieldCount
	}

	var values [3]int64
	for i, field := range fields {
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return RawFrame{}, rowBadInteger
		}
		values[i] = v
	}

	return RawFrame{
		DesiredPresentTimeNs: values[0],
		ActualPresentTimeNs:  values[1],
		FrameReadyTimeNs:     values[2],
	}, rowOK
}
