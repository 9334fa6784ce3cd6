// csv_test.go: Tests for detection table reading and column binding
package detection

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdmetrics/internal/errors"
)

func testColumnMap() ColumnMap {
	return ColumnMap{
		RoleSite:       "site",
		RoleSpecies:    "scientific_name",
		RoleDate:       "date",
		RoleTime:       "time",
		RoleConfidence: "confidence",
	}
}

func TestReadCSV(t *testing.T) {
	input := strings.Join([]string{
		"site,scientific_name,date,time,confidence",
		"A,Turdus migratorius,2024-01-15,08:30:00,0.85",
		"B,Cyanocitta cristata,2024-01-16,101500,0.75",
	}, "\n")

	records, err := ReadCSV(strings.NewReader(input), testColumnMap())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "A", records[0].Site)
	assert.Equal(t, "Turdus migratorius", records[0].Species)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), records[0].Timestamp)
	assert.InDelta(t, 0.85, records[0].Confidence, 1e-12)

	// Compact HHMMSS time encoding is auto-detected
	assert.Equal(t, time.Date(2024, 1, 16, 10, 15, 0, 0, time.UTC), records[1].Timestamp)
	assert.Equal(t, 3, records[1].SourceRow)
}

func TestReadCSVCombinedTimestamp(t *testing.T) {
	input := strings.Join([]string{
		"sp,ts",
		"Turdus merula,2024-03-01 06:15:30",
	}, "\n")

	cm := ColumnMap{RoleSpecies: "sp", RoleTimestamp: "ts"}
	records, err := ReadCSV(strings.NewReader(input), cm)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 6, 15, 30, 0, time.UTC), records[0].Timestamp)
	assert.False(t, records[0].HasConfidence())
	assert.False(t, records[0].HasAbundance())
}

func TestReadCSVMissingColumnsReportedTogether(t *testing.T) {
	input := "foo,bar\n1,2\n"

	cm := ColumnMap{
		RoleSpecies: "scientific_name",
		RoleDate:    "date",
		RoleTime:    "time",
	}
	_, err := ReadCSV(strings.NewReader(input), cm)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	// Every missing binding is named in one error, never one at a time
	msg := err.Error()
	assert.Contains(t, msg, "scientific_name")
	assert.Contains(t, msg, "date")
	assert.Contains(t, msg, "time")
}

func TestReadCSVUnparseableTimestamp(t *testing.T) {
	input := strings.Join([]string{
		"site,scientific_name,date,time,confidence",
		"A,Turdus migratorius,2024-01-15,not-a-time,0.85",
	}, "\n")

	_, err := ReadCSV(strings.NewReader(input), testColumnMap())
	require.Error(t, err)
	assert.True(t, errors.IsParse(err))
	// The offending raw value is named
	assert.Contains(t, err.Error(), "not-a-time")
}

func TestReadCSVEmptyTable(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("site,scientific_name,date,time,confidence\n"), testColumnMap())
	require.Error(t, err)
	assert.True(t, errors.IsData(err))
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"colon delimited", "08:30:15", "08:30:15", false},
		{"hours and minutes", "08:30", "08:30:00", false},
		{"compact six digit", "083015", "08:30:15", false},
		{"garbage", "morning", "", true},
		{"five digits", "83015", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsParse(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("15:04:05"))
		})
	}
}

func TestDialectColumns(t *testing.T) {
	for _, dialect := range []string{"csv", "table", "audacity", "kaleidoscope"} {
		cm, err := DialectColumns(dialect)
		require.NoError(t, err, dialect)
		assert.True(t, cm.HasTimestampBinding(), dialect)
		_, ok := cm[RoleSpecies]
		assert.True(t, ok, dialect)
	}

	_, err := DialectColumns("raven")
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestParseVerified(t *testing.T) {
	assert.Equal(t, VerifiedTrue, parseVerified("correct"))
	assert.Equal(t, VerifiedTrue, parseVerified("1"))
	assert.Equal(t, VerifiedFalse, parseVerified("false_positive"))
	assert.Equal(t, VerifiedFalse, parseVerified("0"))
	assert.Equal(t, VerifiedUnknown, parseVerified("maybe"))
}
