package timeparsing

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var nlpParser = newNLPParser()

func newNLPParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseNaturalLanguage parses expressions like "tomorrow", "next
// monday at 2pm", "in 3 days", relative to the given reference time.
func ParseNaturalLanguage(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}
	r, err := nlpParser.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("not a natural language time: %q", s)
	}
	return r.Time, nil
}

// ParseRelativeTime parses a time expression through the layers in
// order: compact duration, absolute date (date-only then RFC3339), and
// finally natural language.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	if IsCompactDuration(s) {
		return ParseCompactDuration(s, now)
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := ParseNaturalLanguage(s, now); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time expression: %q", s)
}
