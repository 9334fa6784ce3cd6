package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/datastore"
	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/errors"
)

// inputFlags carries the source selection and column bindings every
// subcommand shares.
type inputFlags struct {
	input   string // CSV path, "-" for stdin
	db      string // sqlite path, used instead of CSV when set
	output  string // result CSV path, "-" for stdout
	dialect string

	siteColumn          string
	speciesColumn       string
	timestampColumn     string
	dateColumn          string
	timeColumn          string
	confidenceColumn    string
	abundanceColumn     string
	recordingDaysColumn string
	verifiedColumn      string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "-", "Input detection CSV ('-' for stdin)")
	cmd.Flags().StringVar(&f.db, "db", "", "Read detections from this sqlite database instead of CSV")
	cmd.Flags().StringVarP(&f.output, "output", "o", "-", "Output CSV ('-' for stdout)")
	cmd.Flags().StringVar(&f.dialect, "dialect", conf.DialectCSV, "Input column dialect: csv, table, audacity, kaleidoscope")

	cmd.Flags().StringVar(&f.siteColumn, "site-column", "", "Override site column name")
	cmd.Flags().StringVar(&f.speciesColumn, "species-column", "", "Override species column name")
	cmd.Flags().StringVar(&f.timestampColumn, "timestamp-column", "", "Override combined timestamp column name")
	cmd.Flags().StringVar(&f.dateColumn, "date-column", "", "Override date column name")
	cmd.Flags().StringVar(&f.timeColumn, "time-column", "", "Override time column name")
	cmd.Flags().StringVar(&f.confidenceColumn, "confidence-column", "", "Override confidence column name")
	cmd.Flags().StringVar(&f.abundanceColumn, "abundance-column", "", "Override abundance column name")
	cmd.Flags().StringVar(&f.recordingDaysColumn, "recording-days-column", "", "Override recording length column name")
	cmd.Flags().StringVar(&f.verifiedColumn, "verified-column", "", "Override validation label column name")
}

// columnMap builds the effective column bindings: dialect preset overlaid
// with explicit per-role overrides.
func (f *inputFlags) columnMap() (detection.ColumnMap, error) {
	cm, err := detection.DialectColumns(f.dialect)
	if err != nil {
		return nil, err
	}

	overrides := map[detection.Role]string{
		detection.RoleSite:          f.siteColumn,
		detection.RoleSpecies:       f.speciesColumn,
		detection.RoleTimestamp:     f.timestampColumn,
		detection.RoleDate:          f.dateColumn,
		detection.RoleTime:          f.timeColumn,
		detection.RoleConfidence:    f.confidenceColumn,
		detection.RoleAbundance:     f.abundanceColumn,
		detection.RoleRecordingDays: f.recordingDaysColumn,
		detection.RoleVerified:      f.verifiedColumn,
	}
	for role, name := range overrides {
		if name != "" {
			cm[role] = name
		}
	}
	// An explicit combined timestamp binding supersedes the preset's
	// date+time pair.
	if f.timestampColumn != "" {
		delete(cm, detection.RoleDate)
		delete(cm, detection.RoleTime)
	}
	return cm, nil
}

// loadRecords reads the detection table from the configured source.
func (f *inputFlags) loadRecords(required ...detection.Role) ([]detection.Record, error) {
	if f.db != "" {
		ds, err := datastore.Open(f.db)
		if err != nil {
			return nil, err
		}
		defer ds.Close()
		return ds.LoadDetections()
	}

	cm, err := f.columnMap()
	if err != nil {
		return nil, err
	}

	var r io.Reader
	if f.input == "-" {
		r = os.Stdin
	} else {
		file, err := os.Open(f.input)
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryFileIO).
				Context("path", f.input).
				Build()
		}
		defer file.Close()
		r = file
	}

	return detection.ReadCSV(r, cm, required...)
}

// writeTable writes a result table to the configured output.
func (f *inputFlags) writeTable(header []string, rows [][]string) error {
	if f.output == "-" {
		return detection.WriteCSV(os.Stdout, header, rows)
	}

	file, err := os.Create(f.output)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", f.output).
			Build()
	}
	defer file.Close()
	return detection.WriteCSV(file, header, rows)
}

// maybePersist opens the save database when one is configured.
func maybePersist(settings *conf.Settings) (*datastore.DataStore, error) {
	if settings.Output.Database == "" {
		return nil, nil
	}
	return datastore.Open(settings.Output.Database)
}
