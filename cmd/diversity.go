package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/birdmetrics/internal/activity"
	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/diversity"
	"github.com/tphakala/birdmetrics/internal/logging"
)

// diversityCommand creates the per-site diversity summary subcommand.
func diversityCommand(settings *conf.Settings) *cobra.Command {
	var flags inputFlags
	var statistic, interval, method string

	cmd := &cobra.Command{
		Use:   "diversity",
		Short: "Compute per-site diversity summaries",
		Long: `Compute richness, Shannon, Simpson and Hill-number summaries per site.
When no abundance column is bound, per-group abundance is derived through the
activity rate engine first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := flags.loadRecords(detection.RoleSite)
			if err != nil {
				return err
			}

			iv, err := activity.ParseInterval(interval)
			if err != nil {
				return err
			}

			rows, err := diversity.FromDetections(records, diversity.Options{
				Statistic: statistic,
				Activity: activity.Options{
					Interval: iv,
					Method:   activity.Method(method),
					Logger:   logging.ForService("diversity"),
				},
			})
			if err != nil {
				return err
			}

			if ds, err := maybePersist(settings); err != nil {
				return err
			} else if ds != nil {
				defer ds.Close()
				runID, err := ds.SaveDiversity(rows)
				if err != nil {
					return err
				}
				logging.Info("persisted diversity summaries", "run_id", runID, "rows", len(rows))
			}

			header := []string{"site", "abundance", "richness", "shannon", "simpson", "q1", "q2"}
			out := make([][]string, 0, len(rows))
			for _, r := range rows {
				out = append(out, []string{
					r.Site,
					detection.FormatFloat(r.AbundanceSum),
					detection.FormatFloat(float64(r.Richness)),
					detection.FormatFloat(r.Shannon),
					detection.FormatFloat(r.Simpson),
					detection.FormatFloat(r.Q1),
					detection.FormatFloat(r.Q2),
				})
			}
			return flags.writeTable(header, out)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&statistic, "statistic", settings.Analytics.Diversity.Statistic, "Abundance aggregation: sum, mean, median, max, min")
	cmd.Flags().StringVar(&interval, "interval", settings.Analytics.Activity.Interval, "Deduplication granularity when abundance is derived")
	cmd.Flags().StringVar(&method, "method", settings.Analytics.Activity.Method, "Activity method when abundance is derived")

	return cmd
}
