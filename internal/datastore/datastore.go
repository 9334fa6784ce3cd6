// Package datastore persists detection inputs and analysis outputs in a
// sqlite database whose notes schema is compatible with BirdNET-Go.
package datastore

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tphakala/birdmetrics/internal/activity"
	"github.com/tphakala/birdmetrics/internal/calibration"
	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/diversity"
	"github.com/tphakala/birdmetrics/internal/errors"
)

// DataStore wraps the gorm database handle.
type DataStore struct {
	DB *gorm.DB
}

// Open opens (or creates) the sqlite database at path and migrates the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*DataStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("path", path).
			Build()
	}

	if err := db.AutoMigrate(
		&Note{}, &NoteReview{},
		&AnalysisRun{}, &ActivityRateRecord{}, &DiversityRecord{}, &SpeciesThresholdRecord{},
	); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "auto-migrate").
			Build()
	}

	return &DataStore{DB: db}, nil
}

// LoadDetections reads all notes (joined with their reviews) into detection
// records. The source node doubles as the site identifier.
func (ds *DataStore) LoadDetections() ([]detection.Record, error) {
	var notes []Note
	if err := ds.DB.Preload("Review").Order("date, time, id").Find(&notes).Error; err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "load-detections").
			Build()
	}
	if len(notes) == 0 {
		return nil, errors.DataError("database contains no detections")
	}

	records := make([]detection.Record, 0, len(notes))
	for i := range notes {
		rec, err := noteToRecord(&notes[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func noteToRecord(n *Note) (detection.Record, error) {
	ts, err := detection.CombineDateTime(n.Date, n.Time)
	if err != nil {
		return detection.Record{}, err
	}

	verified := detection.VerifiedUnknown
	if n.Review != nil {
		switch n.Review.Verified {
		case "correct":
			verified = detection.VerifiedTrue
		case "false_positive":
			verified = detection.VerifiedFalse
		}
	}

	return detection.Record{
		Site:          n.SourceNode,
		Species:       n.ScientificName,
		Timestamp:     ts,
		Confidence:    n.Confidence,
		Abundance:     math.NaN(),
		RecordingDays: math.NaN(),
		Verified:      verified,
		SourceRow:     int(n.ID),
	}, nil
}

// newRun inserts an analysis run row and returns its id.
func (ds *DataStore) newRun(kind string) (string, error) {
	run := AnalysisRun{ID: uuid.New().String(), Kind: kind, CreatedAt: time.Now()}
	if err := ds.DB.Create(&run).Error; err != nil {
		return "", errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "create-run").
			Build()
	}
	return run.ID, nil
}

// SaveRates persists activity rates under a new analysis run and returns the
// run id.
func (ds *DataStore) SaveRates(rates []activity.Rate) (string, error) {
	runID, err := ds.newRun("activity")
	if err != nil {
		return "", err
	}
	rows := make([]ActivityRateRecord, 0, len(rates))
	for _, r := range rates {
		rows = append(rows, ActivityRateRecord{
			RunID:          runID,
			Species:        r.Species,
			Site:           r.Site,
			DetectionCount: r.DetectionCount,
			DaysRecorded:   r.DaysRecorded,
			Rate:           r.Rate,
		})
	}
	if len(rows) == 0 {
		return runID, nil
	}
	return runID, ds.create(&rows)
}

// SaveDiversity persists diversity summaries under a new analysis run and
// returns the run id.
func (ds *DataStore) SaveDiversity(rows []diversity.Row) (string, error) {
	runID, err := ds.newRun("diversity")
	if err != nil {
		return "", err
	}
	records := make([]DiversityRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, DiversityRecord{
			RunID:        runID,
			Site:         r.Site,
			AbundanceSum: r.AbundanceSum,
			Richness:     r.Richness,
			Shannon:      r.Shannon,
			Simpson:      r.Simpson,
			Q1:           r.Q1,
			Q2:           r.Q2,
		})
	}
	if len(records) == 0 {
		return runID, nil
	}
	return runID, ds.create(&records)
}

// SaveThresholds persists calibrated thresholds under a new analysis run and
// returns the run id.
func (ds *DataStore) SaveThresholds(models []*calibration.Model) (string, error) {
	runID, err := ds.newRun("threshold")
	if err != nil {
		return "", err
	}
	rows := make([]SpeciesThresholdRecord, 0, len(models))
	for _, m := range models {
		rows = append(rows, SpeciesThresholdRecord{
			RunID:          runID,
			Species:        m.Species,
			Threshold:      m.Threshold,
			LogitThreshold: m.LogitThreshold,
			Intercept:      m.Intercept,
			Slope:          m.Slope,
			N:              m.N,
			LowConfidence:  m.LowConfidence,
		})
	}
	if len(rows) == 0 {
		return runID, nil
	}
	return runID, ds.create(&rows)
}

func (ds *DataStore) create(value any) error {
	if err := ds.DB.Create(value).Error; err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("operation", "insert-results").
			Build()
	}
	return nil
}

// Close closes the underlying database connection.
func (ds *DataStore) Close() error {
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
