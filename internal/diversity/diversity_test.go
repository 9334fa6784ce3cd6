// diversity_test.go: Tests for per-site diversity summaries
package diversity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdmetrics/internal/activity"
	"github.com/tphakala/birdmetrics/internal/community"
	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/errors"
)

func buildMatrix(t *testing.T, obs []community.Observation) *community.Matrix {
	t.Helper()
	m, err := community.Build(obs, false)
	require.NoError(t, err)
	return m
}

func TestSummarizeTwoEvenSpecies(t *testing.T) {
	m := buildMatrix(t, []community.Observation{
		{Site: "A", Species: "sp1", Value: 10},
		{Site: "A", Species: "sp2", Value: 10},
	})

	rows := Summarize(m)
	require.Len(t, rows, 1)
	r := rows[0]

	assert.Equal(t, "A", r.Site)
	assert.Equal(t, 2, r.Richness)
	assert.InDelta(t, 20.0, r.AbundanceSum, 1e-12)
	assert.InDelta(t, math.Log(2), r.Shannon, 1e-12)
	assert.InDelta(t, 0.5, r.Simpson, 1e-12)
	assert.InDelta(t, 2.0, r.Q1, 1e-12)
	assert.InDelta(t, 2.0, r.Q2, 1e-12)
}

func TestSummarizeMonoculture(t *testing.T) {
	// A single-species site: shannon 0, simpson 0, both Hill numbers 1
	m := buildMatrix(t, []community.Observation{
		{Site: "A", Species: "sp1", Value: 42},
	})

	rows := Summarize(m)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Richness)
	assert.InDelta(t, 0.0, rows[0].Shannon, 1e-12)
	assert.InDelta(t, 0.0, rows[0].Simpson, 1e-12)
	assert.InDelta(t, 1.0, rows[0].Q1, 1e-12)
	assert.InDelta(t, 1.0, rows[0].Q2, 1e-12)
}

func TestSummarizeBounds(t *testing.T) {
	m := buildMatrix(t, []community.Observation{
		{Site: "A", Species: "sp1", Value: 12},
		{Site: "A", Species: "sp2", Value: 3},
		{Site: "A", Species: "sp3", Value: 1},
		{Site: "B", Species: "sp2", Value: 7},
		{Site: "B", Species: "sp3", Value: 0},
	})

	for _, r := range Summarize(m) {
		assert.GreaterOrEqual(t, r.Simpson, 0.0, r.Site)
		assert.Less(t, r.Simpson, 1.0, r.Site)
		assert.GreaterOrEqual(t, r.Shannon, 0.0, r.Site)
		assert.GreaterOrEqual(t, r.Richness, 0)
		assert.LessOrEqual(t, r.Richness, len(m.Species))
		if r.Richness >= 1 {
			assert.GreaterOrEqual(t, r.Q1, 1.0, r.Site)
			assert.GreaterOrEqual(t, r.Q2, 1.0, r.Site)
		}
	}
}

func TestFromDetectionsPrecomputedAbundance(t *testing.T) {
	records := []detection.Record{
		rec("A", "sp1", "2024-05-01 06:00:00", 5),
		rec("A", "sp1", "2024-05-01 07:00:00", 3),
		rec("A", "sp2", "2024-05-01 08:00:00", 8),
	}

	rows, err := FromDetections(records, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Richness)
	assert.InDelta(t, 16.0, rows[0].AbundanceSum, 1e-12)
	// sp1 summed to 8, sp2 is 8: an even community
	assert.InDelta(t, math.Log(2), rows[0].Shannon, 1e-12)
}

func TestFromDetectionsDerivedAbundance(t *testing.T) {
	// No abundance column bound: the activity engine supplies rates. Both
	// detections of sp1 fall in the same minute, so sp1 and sp2 tie at one
	// vocal event per day each.
	records := []detection.Record{
		rec("A", "sp1", "2024-05-01 06:00:10", math.NaN()),
		rec("A", "sp1", "2024-05-01 06:00:40", math.NaN()),
		rec("A", "sp2", "2024-05-01 07:00:00", math.NaN()),
	}

	rows, err := FromDetections(records, Options{
		Activity: activity.Options{Interval: activity.IntervalMinute},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Richness)
	assert.InDelta(t, math.Log(2), rows[0].Shannon, 1e-12)
	assert.InDelta(t, 0.5, rows[0].Simpson, 1e-12)
}

func TestFromDetectionsDeterministicOrder(t *testing.T) {
	records := []detection.Record{
		rec("B", "sp2", "2024-05-01 06:00:00", 1),
		rec("A", "sp1", "2024-05-01 06:00:00", 1),
		rec("B", "sp1", "2024-05-01 06:00:00", 1),
	}

	rows, err := FromDetections(records, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Site)
	assert.Equal(t, "B", rows[1].Site)
}

func TestFromDetectionsEmpty(t *testing.T) {
	_, err := FromDetections(nil, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsData(err))
}

func rec(site, species, timestamp string, abundance float64) detection.Record {
	ts, err := time.Parse("2006-01-02 15:04:05", timestamp)
	if err != nil {
		panic(err)
	}
	return detection.Record{
		Site:          site,
		Species:       species,
		Timestamp:     ts,
		Confidence:    math.NaN(),
		Abundance:     abundance,
		RecordingDays: math.NaN(),
		Verified:      detection.VerifiedUnknown,
	}
}
