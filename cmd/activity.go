package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/birdmetrics/internal/activity"
	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/logging"
)

// activityCommand creates the vocal activity rate subcommand.
func activityCommand(settings *conf.Settings) *cobra.Command {
	var flags inputFlags
	var interval, method string
	var bySite bool

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Compute per-species vocal activity rates",
		Long: `Convert raw detection timestamps into one activity rate per species
(optionally per site), deduplicating classifier re-reports of the same call
through interval flooring.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := flags.loadRecords()
			if err != nil {
				return err
			}

			iv, err := activity.ParseInterval(interval)
			if err != nil {
				return err
			}

			rates, err := activity.Compute(records, activity.Options{
				Interval: iv,
				Method:   activity.Method(method),
				BySite:   bySite,
				Logger:   logging.ForService("activity"),
			})
			if err != nil {
				return err
			}

			if ds, err := maybePersist(settings); err != nil {
				return err
			} else if ds != nil {
				defer ds.Close()
				runID, err := ds.SaveRates(rates)
				if err != nil {
					return err
				}
				logging.Info("persisted activity rates", "run_id", runID, "rows", len(rates))
			}

			header := []string{"species", "site", "detection_count", "days_recorded", "rate"}
			rows := make([][]string, 0, len(rates))
			for _, r := range rates {
				rows = append(rows, []string{
					r.Species,
					r.Site,
					detection.FormatFloat(float64(r.DetectionCount)),
					detection.FormatFloat(r.DaysRecorded),
					detection.FormatFloat(r.Rate),
				})
			}
			return flags.writeTable(header, rows)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&interval, "interval", settings.Analytics.Activity.Interval, "Deduplication granularity: minute, Nmin, hour, day")
	cmd.Flags().StringVar(&method, "method", settings.Analytics.Activity.Method, "Reduction method: interval_deduplication, total_detections, detections_per_day")
	cmd.Flags().BoolVar(&bySite, "by-site", settings.Analytics.Activity.BySite, "Group by site in addition to species")

	return cmd
}
