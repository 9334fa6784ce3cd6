package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdmetrics/internal/activity"
	"github.com/tphakala/birdmetrics/internal/calibration"
	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/diversity"
	"github.com/tphakala/birdmetrics/internal/errors"
)

// openTestStore opens an ephemeral in-memory store.
func openTestStore(t *testing.T) *DataStore {
	t.Helper()
	ds, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// seedNote inserts a note, optionally with a review verdict.
func seedNote(t *testing.T, ds *DataStore, site, species, date, clock string, conf float64, verdict string) {
	t.Helper()
	note := Note{
		SourceNode:     site,
		Date:           date,
		Time:           clock,
		ScientificName: species,
		Confidence:     conf,
	}
	require.NoError(t, ds.DB.Create(&note).Error)
	if verdict != "" {
		review := NoteReview{NoteID: note.ID, Verified: verdict}
		require.NoError(t, ds.DB.Create(&review).Error)
	}
}

func TestLoadDetections(t *testing.T) {
	ds := openTestStore(t)
	seedNote(t, ds, "forest-a", "Turdus merula", "2024-05-01", "06:15:00", 0.91, "correct")
	seedNote(t, ds, "forest-a", "Erithacus rubecula", "2024-05-01", "06:20:00", 0.45, "false_positive")
	seedNote(t, ds, "forest-b", "Turdus merula", "2024-05-02", "05:05:30", 0.70, "")

	records, err := ds.LoadDetections()
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Ordered by date then time
	first := records[0]
	assert.Equal(t, "forest-a", first.Site)
	assert.Equal(t, "Turdus merula", first.Species)
	assert.Equal(t, time.Date(2024, 5, 1, 6, 15, 0, 0, time.UTC), first.Timestamp)
	assert.InDelta(t, 0.91, first.Confidence, 1e-12)
	assert.Equal(t, detection.VerifiedTrue, first.Verified)

	assert.Equal(t, detection.VerifiedFalse, records[1].Verified)
	assert.Equal(t, detection.VerifiedUnknown, records[2].Verified)

	// Notes carry no abundance or recording effort
	assert.False(t, records[0].HasAbundance())
	assert.False(t, records[0].HasRecordingDays())
}

func TestLoadDetectionsEmpty(t *testing.T) {
	ds := openTestStore(t)

	_, err := ds.LoadDetections()
	require.Error(t, err)
	assert.True(t, errors.IsData(err))
}

func TestSaveRatesRoundTrip(t *testing.T) {
	ds := openTestStore(t)

	rates := []activity.Rate{
		{Species: "Turdus merula", Site: "forest-a", DetectionCount: 12, DaysRecorded: 3, Rate: 4},
		{Species: "Erithacus rubecula", Site: "forest-a", DetectionCount: 6, DaysRecorded: 3, Rate: 2},
	}
	runID, err := ds.SaveRates(rates)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	var run AnalysisRun
	require.NoError(t, ds.DB.First(&run, "id = ?", runID).Error)
	assert.Equal(t, "activity", run.Kind)

	var rows []ActivityRateRecord
	require.NoError(t, ds.DB.Where("run_id = ?", runID).Order("species").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "Erithacus rubecula", rows[0].Species)
	assert.InDelta(t, 4.0, rows[1].Rate, 1e-12)
}

func TestSaveDiversityRoundTrip(t *testing.T) {
	ds := openTestStore(t)

	runID, err := ds.SaveDiversity([]diversity.Row{
		{Site: "forest-a", AbundanceSum: 18, Richness: 2, Shannon: 0.6365, Simpson: 0.4444, Q1: 1.89, Q2: 1.8},
	})
	require.NoError(t, err)

	var rows []DiversityRecord
	require.NoError(t, ds.DB.Where("run_id = ?", runID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "forest-a", rows[0].Site)
	assert.Equal(t, 2, rows[0].Richness)
	assert.InDelta(t, 0.4444, rows[0].Simpson, 1e-12)
}

func TestSaveThresholdsRoundTrip(t *testing.T) {
	ds := openTestStore(t)

	runID, err := ds.SaveThresholds([]*calibration.Model{
		{Species: "Turdus merula", Intercept: -4, Slope: 10, Threshold: 0.69, LogitThreshold: 0.694, N: 40},
		{Species: "Erithacus rubecula", Intercept: -2, Slope: 5, Threshold: 0.98, N: 8, LowConfidence: true},
	})
	require.NoError(t, err)

	var rows []SpeciesThresholdRecord
	require.NoError(t, ds.DB.Where("run_id = ?", runID).Order("species").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].LowConfidence)
	assert.Equal(t, 40, rows[1].N)
	assert.InDelta(t, 0.69, rows[1].Threshold, 1e-12)
}

func TestSaveEmptyResultStillCreatesRun(t *testing.T) {
	ds := openTestStore(t)

	runID, err := ds.SaveRates(nil)
	require.NoError(t, err)

	var run AnalysisRun
	require.NoError(t, ds.DB.First(&run, "id = ?", runID).Error)

	var count int64
	require.NoError(t, ds.DB.Model(&ActivityRateRecord{}).Count(&count).Error)
	assert.Zero(t, count)
}
