// Package timespan turns short human duration tokens ("30d", "12h", "45m",
// "P7D") into concrete query windows.
package timespan

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Day is the length of a "d" unit.
	Day = 24 * time.Hour

	// FallbackSpan is used for any non-empty token that cannot be parsed.
	FallbackSpan = Day
)

var (
	shortTokenRegex = regexp.MustCompile(`(?i)^(\d+)([dhm])$`)
	isoDaysRegex    = regexp.MustCompile(`(?i)^P(\d+)D$`)
)

// Window is a half-open [start, end) interval. The zero value is an empty
// window at the zero instant.
type Window struct {
	start time.Time
	end   time.Time
}

// NewWindow returns the window of length span ending at end. A negative span
// is treated as zero so that start never comes after end.
func NewWindow(end time.Time, span time.Duration) Window {
	if span < 0 {
		span = 0
	}
	return Window{start: end.Add(-span), end: end}
}

// Start returns the inclusive start of the window.
func (w Window) Start() time.Time { return w.start }

// End returns the exclusive end of the window.
func (w Window) End() time.Time { return w.end }

// Duration returns end - start.
func (w Window) Duration() time.Duration { return w.end.Sub(w.start) }

// IsZeroWidth reports whether start == end.
func (w Window) IsZeroWidth() bool { return w.start.Equal(w.end) }

// KQL renders the window length as a KQL timespan literal, using the largest
// unit that divides it exactly: "30d", "12h", "45m", falling back to seconds.
func (w Window) KQL() string {
	d := w.Duration()
	switch {
	case d == 0:
		return "0d"
	case d%Day == 0:
		return fmt.Sprintf("%dd", d/Day)
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}

// Interval renders the window as an ISO-8601 "start/end" interval in UTC.
func (w Window) Interval() string {
	return w.start.UTC().Format(time.RFC3339) + "/" + w.end.UTC().Format(time.RFC3339)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.start.Format(time.RFC3339), w.end.Format(time.RFC3339))
}

// Parser resolves tokens against a clock. It holds no mutable state and is
// safe for concurrent use.
type Parser struct {
	now func() time.Time
}

// NewParser creates a Parser. A nil clock means time.Now.
func NewParser(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

// Parse resolves token into a window ending at the parser's current time.
// An empty token yields a window of length def. A token that matches neither
// the short form nor the ISO day form yields the one day fallback; Parse
// never fails.
func (p *Parser) Parse(token string, def time.Duration) Window {
	end := p.now()
	token = strings.TrimSpace(token)
	if token == "" {
		return NewWindow(end, def)
	}
	span, ok := ParseDuration(token)
	if !ok {
		span = FallbackSpan
	}
	return NewWindow(end, span)
}

// ParseDuration parses a token into a span. ok is false for anything that is
// not a non-negative "<n>d|h|m" or "P<n>D" token, or whose span would
// overflow time.Duration.
func ParseDuration(token string) (time.Duration, bool) {
	if m := shortTokenRegex.FindStringSubmatch(token); m != nil {
		return scale(m[1], unitFor(m[2]))
	}
	if m := isoDaysRegex.FindStringSubmatch(token); m != nil {
		return scale(m[1], Day)
	}
	return 0, false
}

func unitFor(suffix string) time.Duration {
	switch strings.ToLower(suffix) {
	case "h":
		return time.Hour
	case "m":
		return time.Minute
	default:
		return Day
	}
}

func scale(digits string, unit time.Duration) (time.Duration, bool) {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 || n > math.MaxInt64/int64(unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}
