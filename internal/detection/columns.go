package detection

import (
	"fmt"
	"sort"

	"github.com/tphakala/birdmetrics/internal/errors"
)

// Role names a semantic field of the detection record. Callers bind roles to
// actual column names because upstream export formats vary.
type Role string

const (
	RoleSite          Role = "site"
	RoleSpecies       Role = "species"
	RoleTimestamp     Role = "timestamp" // combined date+time column
	RoleDate          Role = "date"      // date column, paired with RoleTime
	RoleTime          Role = "time"      // time column, paired with RoleDate
	RoleConfidence    Role = "confidence"
	RoleAbundance     Role = "abundance"
	RoleRecordingDays Role = "recording_days"
	RoleVerified      Role = "verified"
)

// ColumnMap binds semantic roles to column names in the source table. It is
// validated once at entry and never re-resolved mid-computation.
type ColumnMap map[Role]string

// Dialect presets for common detection export formats. The bindings cover the
// column names those exports use for the semantic fields this toolkit reads;
// callers override individual roles as needed.
func DialectColumns(dialect string) (ColumnMap, error) {
	switch dialect {
	case "csv":
		// Generic long-form CSV, lowercase snake_case headers
		return ColumnMap{
			RoleSite:       "site",
			RoleSpecies:    "scientific_name",
			RoleDate:       "date",
			RoleTime:       "time",
			RoleConfidence: "confidence",
		}, nil
	case "table":
		// BirdNET analyzer table export
		return ColumnMap{
			RoleSpecies:    "Common Name",
			RoleDate:       "Date",
			RoleTime:       "Time",
			RoleConfidence: "Confidence",
		}, nil
	case "audacity":
		// Audacity label track export converted to CSV
		return ColumnMap{
			RoleSpecies:    "label",
			RoleTimestamp:  "start",
			RoleConfidence: "confidence",
		}, nil
	case "kaleidoscope":
		// Wildlife Acoustics Kaleidoscope export
		return ColumnMap{
			RoleSite:       "IN FILE",
			RoleSpecies:    "scientific_name",
			RoleDate:       "DATE",
			RoleTime:       "TIME",
			RoleConfidence: "confidence",
		}, nil
	default:
		return nil, errors.ConfigurationError("unknown input dialect", fmt.Sprintf("dialect=%q", dialect))
	}
}

// HasTimestampBinding reports whether the map can resolve an instant, either
// through a combined timestamp column or a date column (time optional when
// working at day granularity is not supported; time is required).
func (cm ColumnMap) HasTimestampBinding() bool {
	if _, ok := cm[RoleTimestamp]; ok {
		return true
	}
	_, hasDate := cm[RoleDate]
	_, hasTime := cm[RoleTime]
	return hasDate && hasTime
}

// Validate checks that every required role is bound and every bound column
// exists in the header. All problems are reported in a single configuration
// error, never one at a time.
func (cm ColumnMap) Validate(header []string, required ...Role) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	var missing []string
	for _, role := range required {
		name, bound := cm[role]
		switch {
		case !bound:
			missing = append(missing, fmt.Sprintf("%s (unbound)", role))
		case !present[name]:
			missing = append(missing, fmt.Sprintf("%s (column %q not found)", role, name))
		}
	}

	// Optional bindings still have to point at real columns.
	for role, name := range cm {
		if isRequired(role, required) {
			continue
		}
		if !present[name] {
			missing = append(missing, fmt.Sprintf("%s (column %q not found)", role, name))
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.ConfigurationError("missing or invalid column bindings", missing...)
	}
	return nil
}

func isRequired(role Role, required []Role) bool {
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

// indexOf builds a column name to index mapping for the header row.
func indexOf(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	return idx
}
