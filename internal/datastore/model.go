// model.go defines the persisted data model: detection input tables
// compatible with BirdNET-Go's notes schema, plus analysis output tables.
package datastore

import "time"

// Note represents a single detection as stored by the classifier frontend.
// The schema is compatible with the notes table BirdNET-Go writes.
type Note struct {
	ID             uint   `gorm:"primaryKey"`
	SourceNode     string `gorm:"index:idx_notes_sourcenode"`
	Date           string `gorm:"index:idx_notes_date"`
	Time           string
	ScientificName string `gorm:"index:idx_notes_sciname"`
	CommonName     string
	Confidence     float64
	Latitude       float64
	Longitude      float64

	Review *NoteReview `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
}

// NoteReview represents the human validation outcome for a Note.
type NoteReview struct {
	ID        uint      `gorm:"primaryKey"`
	NoteID    uint      `gorm:"uniqueIndex;not null"`
	Verified  string    `gorm:"type:varchar(20)"` // "correct" or "false_positive"
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// AnalysisRun groups the output rows of one analysis invocation.
type AnalysisRun struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"` // uuid
	Kind      string    `gorm:"index"`                       // activity, diversity, threshold
	CreatedAt time.Time `gorm:"index"`
}

// ActivityRateRecord is one persisted activity rate row.
type ActivityRateRecord struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          string `gorm:"index;type:varchar(36)"`
	Species        string `gorm:"index"`
	Site           string
	DetectionCount int
	DaysRecorded   float64
	Rate           float64
}

// DiversityRecord is one persisted per-site diversity summary.
type DiversityRecord struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"index;type:varchar(36)"`
	Site         string `gorm:"index"`
	AbundanceSum float64
	Richness     int
	Shannon      float64
	Simpson      float64
	Q1           float64
	Q2           float64
}

// SpeciesThresholdRecord is one persisted calibrated confidence threshold.
type SpeciesThresholdRecord struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          string `gorm:"index;type:varchar(36)"`
	Species        string `gorm:"index"`
	Threshold      float64
	LogitThreshold float64
	Intercept      float64
	Slope          float64
	N              int
	LowConfidence  bool
}
