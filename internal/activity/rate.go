package activity

import (
	"log/slog"
	"sort"
	"time"

	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/errors"
)

// Method selects the reduction applied to a group's detections.
type Method string

const (
	// MethodIntervalDedup drops duplicate detections sharing the same
	// interval before counting, and divides by days recorded.
	MethodIntervalDedup Method = conf.MethodIntervalDedup
	// MethodTotalDetections counts every raw detection and divides by days
	// recorded.
	MethodTotalDetections Method = conf.MethodTotalDetections
	// MethodDetectionsPerDay averages raw per-calendar-day counts. An
	// explicit recording-length column does not enter this method; the
	// value is a plain mean over the days that were actually recorded.
	MethodDetectionsPerDay Method = conf.MethodDetectionsPerDay
)

// Options configures a Compute call.
type Options struct {
	Interval Interval
	Method   Method
	BySite   bool         // group by site in addition to species
	Logger   *slog.Logger // optional, for per-group warnings
}

// Rate is the per-group activity rate output.
type Rate struct {
	Species        string
	Site           string
	DetectionCount int
	DaysRecorded   float64
	Rate           float64
}

type groupKey struct {
	species string
	site    string
}

// Compute reduces a detection table to one activity rate per species (and
// site, when Options.BySite is set). See the Method constants for the
// supported reductions.
func Compute(records []detection.Record, opts Options) ([]Rate, error) {
	if len(records) == 0 {
		return nil, errors.DataError("no detections to compute activity rates from")
	}
	if opts.Method == "" {
		opts.Method = MethodIntervalDedup
	}
	switch opts.Method {
	case MethodIntervalDedup, MethodTotalDetections, MethodDetectionsPerDay:
	default:
		return nil, errors.ConfigurationError("unknown activity rate method", string(opts.Method))
	}
	if opts.Interval == (Interval{}) {
		opts.Interval = IntervalMinute
	}

	groups := make(map[groupKey][]detection.Record)
	for _, rec := range records {
		key := groupKey{species: rec.Species}
		if opts.BySite {
			key.site = rec.Site
		}
		groups[key] = append(groups[key], rec)
	}

	rates := make([]Rate, 0, len(groups))
	for key, recs := range groups {
		rate, err := reduceGroup(key, recs, opts)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}

	sort.Slice(rates, func(i, j int) bool {
		if rates[i].Species != rates[j].Species {
			return rates[i].Species < rates[j].Species
		}
		return rates[i].Site < rates[j].Site
	})
	return rates, nil
}

func reduceGroup(key groupKey, recs []detection.Record, opts Options) (Rate, error) {
	dates := make(map[string]int)
	intervals := make(map[time.Time]bool)
	for _, rec := range recs {
		dates[rec.Date()]++
		intervals[opts.Interval.Floor(rec.Timestamp)] = true
	}

	if opts.Method == MethodDetectionsPerDay {
		if len(dates) == 0 {
			return Rate{}, errors.DataError("species %q has no recorded dates", key.species)
		}
		total := 0
		for _, n := range dates {
			total += n
		}
		mean := float64(total) / float64(len(dates))
		return Rate{
			Species:        key.species,
			Site:           key.site,
			DetectionCount: total,
			DaysRecorded:   float64(len(dates)),
			Rate:           mean,
		}, nil
	}

	count := len(recs)
	if opts.Method == MethodIntervalDedup {
		count = len(intervals)
	}

	days, err := daysRecorded(key, recs, dates, opts.Logger)
	if err != nil {
		return Rate{}, err
	}

	return Rate{
		Species:        key.species,
		Site:           key.site,
		DetectionCount: count,
		DaysRecorded:   days,
		Rate:           float64(count) / days,
	}, nil
}

// daysRecorded resolves the denominator for a group: the first explicit
// recording-length value when one is bound for the group, otherwise the
// number of distinct calendar dates. Groups lacking the recording-length
// column fall back per group, they do not abort the batch.
func daysRecorded(key groupKey, recs []detection.Record, dates map[string]int, logger *slog.Logger) (float64, error) {
	for _, rec := range recs {
		if rec.HasRecordingDays() {
			if rec.RecordingDays <= 0 {
				return 0, errors.DataError("species %q has non-positive recording length %v", key.species, rec.RecordingDays)
			}
			return rec.RecordingDays, nil
		}
	}

	if len(dates) == 0 {
		return 0, errors.DataError("species %q has no recorded dates", key.species)
	}
	if logger != nil {
		logger.Debug("no recording length for group, using distinct dates",
			"species", key.species, "site", key.site, "days", len(dates))
	}
	return float64(len(dates)), nil
}
