// Package activity converts raw per-detection timestamps into vocal activity
// rates, deduplicating classifier re-reports of the same call through
// interval flooring.
package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/birdmetrics/internal/errors"
)

// Interval is a deduplication granularity. Detections of the same species
// (and site) whose timestamps floor to the same interval count as one vocal
// event, which absorbs the duplicate reports an overlapping analysis window
// produces for a single call.
type Interval struct {
	Unit    string // "minute", "hour", "day"
	Minutes int    // >1 for N-minute intervals, otherwise 1
}

// Predefined granularities.
var (
	IntervalMinute = Interval{Unit: "minute", Minutes: 1}
	IntervalHour   = Interval{Unit: "hour"}
	IntervalDay    = Interval{Unit: "day"}
)

// ParseInterval resolves a textual granularity: "minute", "hour", "day" or
// "Nmin" for N-minute intervals (e.g. "15min").
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minute", "min", "1min":
		return IntervalMinute, nil
	case "hour":
		return IntervalHour, nil
	case "day":
		return IntervalDay, nil
	}

	lower := strings.ToLower(strings.TrimSpace(s))
	if n, ok := strings.CutSuffix(lower, "min"); ok {
		minutes, err := strconv.Atoi(n)
		if err == nil && minutes > 0 && minutes <= 24*60 {
			return Interval{Unit: "minute", Minutes: minutes}, nil
		}
	}

	return Interval{}, errors.ConfigurationError("unknown interval unit", fmt.Sprintf("interval=%q", s))
}

// Floor truncates t to the start of its interval.
func (iv Interval) Floor(t time.Time) time.Time {
	switch iv.Unit {
	case "day":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case "hour":
		return t.Truncate(time.Hour)
	default:
		minutes := iv.Minutes
		if minutes < 1 {
			minutes = 1
		}
		return t.Truncate(time.Duration(minutes) * time.Minute)
	}
}

// String implements fmt.Stringer.
func (iv Interval) String() string {
	if iv.Unit == "minute" && iv.Minutes > 1 {
		return fmt.Sprintf("%dmin", iv.Minutes)
	}
	return iv.Unit
}
