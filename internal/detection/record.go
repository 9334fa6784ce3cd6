// Package detection defines the shared detection record contract consumed by
// the activity, community, diversity, calibration and sampling engines.
package detection

import (
	"math"
	"time"
)

// Verification label values for a detection record.
const (
	VerifiedUnknown = -1 // no human validation available
	VerifiedFalse   = 0  // human marked the detection incorrect
	VerifiedTrue    = 1  // human marked the detection correct
)

// Record represents a single species detection produced by an acoustic
// classifier, after column binding and timestamp resolution. Species and
// Timestamp are always resolvable; every other field is optional.
type Record struct {
	Site          string    // site identifier, empty when not grouped by site
	Species       string    // species identifier, e.g. scientific name
	Timestamp     time.Time // resolved absolute detection instant
	Confidence    float64   // classifier confidence in [0,1], NaN when absent
	Abundance     float64   // abundance or count, NaN when absent
	RecordingDays float64   // externally supplied recording length, NaN when absent
	Verified      int       // VerifiedUnknown, VerifiedFalse or VerifiedTrue
	SourceRow     int       // 1-based row in the source table, for error reporting
}

// HasConfidence reports whether a confidence value was bound for this record.
func (r *Record) HasConfidence() bool {
	return !math.IsNaN(r.Confidence)
}

// HasAbundance reports whether an abundance value was bound for this record.
func (r *Record) HasAbundance() bool {
	return !math.IsNaN(r.Abundance)
}

// HasRecordingDays reports whether an explicit recording length was bound.
func (r *Record) HasRecordingDays() bool {
	return !math.IsNaN(r.RecordingDays)
}

// Date returns the calendar date of the detection in ISO 8601 format.
func (r *Record) Date() string {
	return r.Timestamp.Format("2006-01-02")
}

// AbundanceOrPresence returns the bound abundance, defaulting to presence=1
// when no abundance column was bound.
func (r *Record) AbundanceOrPresence() float64 {
	if r.HasAbundance() {
		return r.Abundance
	}
	return 1
}
