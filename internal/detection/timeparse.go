package detection

import (
	"strings"
	"time"

	"github.com/tphakala/birdmetrics/internal/errors"
)

// Layouts accepted for a combined timestamp column.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
}

// Layouts accepted for a standalone date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
}

// ParseTimestamp resolves a combined date+time value, trying the known
// layouts in order.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.ParseError("timestamp", raw)
}

// ParseDate resolves a standalone date value.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.ParseError("date", raw)
}

// ParseClock resolves a time-of-day value. When no explicit layout is given
// it auto-detects between colon-delimited HH:MM:SS (or HH:MM) and the compact
// 6-digit HHMMSS encoding some recorders emit.
func ParseClock(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)

	if strings.Contains(value, ":") {
		for _, layout := range []string{"15:04:05", "15:04"} {
			if t, err := time.Parse(layout, value); err == nil {
				return t, nil
			}
		}
		return time.Time{}, errors.ParseError("time", raw)
	}

	if len(value) == 6 && isDigits(value) {
		if t, err := time.Parse("150405", value); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.ParseError("time", raw)
}

// CombineDateTime resolves a date column and a time column into one instant.
func CombineDateTime(rawDate, rawTime string) (time.Time, error) {
	d, err := ParseDate(rawDate)
	if err != nil {
		return time.Time{}, err
	}
	c, err := ParseClock(rawTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(),
		c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
