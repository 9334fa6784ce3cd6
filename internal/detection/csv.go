package detection

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tphakala/birdmetrics/internal/errors"
)

// ReadCSV reads a detection table from r, binding columns through cm. The
// species role and a timestamp binding (combined column, or date + time) are
// always required; extra roles from required are validated on top.
//
// Structural problems (missing columns, empty table) abort the read; a value
// that cannot be parsed aborts with a parse error naming the raw value.
func ReadCSV(r io.Reader, cm ColumnMap, required ...Role) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.DataError("input table is empty")
	}
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryFileIO).Build()
	}

	req := append([]Role{RoleSpecies}, required...)
	if !cm.HasTimestampBinding() {
		req = append(req, RoleTimestamp)
	}
	if err := cm.Validate(header, req...); err != nil {
		return nil, err
	}

	idx := indexOf(header)
	col := func(row []string, role Role) (string, bool) {
		name, ok := cm[role]
		if !ok {
			return "", false
		}
		return strings.TrimSpace(row[idx[name]]), true
	}

	var records []Record
	rowNum := 1 // header was row 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New(err).Category(errors.CategoryFileIO).Context("row", rowNum+1).Build()
		}
		rowNum++

		rec := Record{
			Confidence:    math.NaN(),
			Abundance:     math.NaN(),
			RecordingDays: math.NaN(),
			Verified:      VerifiedUnknown,
			SourceRow:     rowNum,
		}

		rec.Species, _ = col(row, RoleSpecies)
		if site, ok := col(row, RoleSite); ok {
			rec.Site = site
		}

		if raw, ok := col(row, RoleTimestamp); ok {
			rec.Timestamp, err = ParseTimestamp(raw)
		} else {
			rawDate, _ := col(row, RoleDate)
			rawTime, _ := col(row, RoleTime)
			rec.Timestamp, err = CombineDateTime(rawDate, rawTime)
		}
		if err != nil {
			return nil, err
		}

		if raw, ok := col(row, RoleConfidence); ok && raw != "" {
			if rec.Confidence, err = parseFloat("confidence", raw); err != nil {
				return nil, err
			}
		}
		if raw, ok := col(row, RoleAbundance); ok && raw != "" {
			if rec.Abundance, err = parseFloat("abundance", raw); err != nil {
				return nil, err
			}
		}
		if raw, ok := col(row, RoleRecordingDays); ok && raw != "" {
			if rec.RecordingDays, err = parseFloat("recording_days", raw); err != nil {
				return nil, err
			}
		}
		if raw, ok := col(row, RoleVerified); ok && raw != "" {
			rec.Verified = parseVerified(raw)
		}

		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, errors.DataError("input table has no data rows")
	}
	return records, nil
}

func parseFloat(role, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.ParseError(role, raw)
	}
	return v, nil
}

// parseVerified maps the validation label encodings seen in the wild onto
// the Verified constants. Unrecognized values stay unlabeled.
func parseVerified(raw string) int {
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "correct":
		return VerifiedTrue
	case "0", "false", "f", "no", "n", "incorrect", "false_positive":
		return VerifiedFalse
	default:
		return VerifiedUnknown
	}
}

// WriteCSV writes a result table with the given header and rows.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return errors.New(err).Category(errors.CategoryFileIO).Build()
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return errors.New(err).Category(errors.CategoryFileIO).Build()
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.New(err).Category(errors.CategoryFileIO).Build()
	}
	return nil
}

// FormatFloat renders a float for CSV output, keeping integers compact.
func FormatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
