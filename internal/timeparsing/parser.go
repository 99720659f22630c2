// Package timeparsing resolves the due-date expressions accepted on
// the command line. An input is tried as a compact duration ("2w",
// "-1d"), then as an absolute date (2026-03-01 or RFC3339), then as
// natural language ("next friday").
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// A compact duration is a count with a one-letter unit and an optional
// sign: 6h, +2w, -1d, 3m, 1y.
var compactRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// IsCompactDuration reports whether s is compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactRe.MatchString(s)
}

// ParseCompactDuration resolves a compact duration against now. Days,
// weeks, months, and years shift the calendar date via time.AddDate,
// so overflow normalizes ("1m" on Jan 31 lands in early March).
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	m := compactRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("not a compact duration: %q", s)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad duration count %q: %w", m[2], err)
	}
	if m[1] == "-" {
		n = -n
	}
	switch m[3] {
	case "h":
		return now.Add(time.Duration(n) * time.Hour), nil
	case "d":
		return now.AddDate(0, 0, n), nil
	case "w":
		return now.AddDate(0, 0, 7*n), nil
	case "m":
		return now.AddDate(0, n, 0), nil
	case "y":
		return now.AddDate(n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("unknown duration unit %q", m[3])
}
