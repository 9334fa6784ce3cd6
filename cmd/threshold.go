package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/birdmetrics/internal/calibration"
	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/detection"
	"github.com/tphakala/birdmetrics/internal/logging"
)

// thresholdCommand creates the confidence threshold calibration subcommand.
func thresholdCommand(settings *conf.Settings) *cobra.Command {
	var flags inputFlags
	var precision, sensitivity float64
	var backtransform, strict bool
	var minObs int
	var curveOutput string

	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Calibrate per-species confidence thresholds",
		Long: `Fit a logistic model relating confidence score to human-validated
correctness per species and derive the confidence threshold achieving a
target precision. Species whose fits fail are skipped with a warning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := flags.loadRecords(detection.RoleConfidence)
			if err != nil {
				return err
			}

			transform := calibration.TransformNone
			if backtransform {
				transform = calibration.TransformLogit
			}

			models, err := calibration.FitAll(records, calibration.Options{
				TargetPrecision: precision,
				Transform:       transform,
				Sensitivity:     sensitivity,
				MinObservations: minObs,
				Strict:          strict,
				FullOutput:      curveOutput != "",
				Logger:          logging.ForService("calibration"),
			})
			if err != nil {
				return err
			}

			if ds, err := maybePersist(settings); err != nil {
				return err
			} else if ds != nil {
				defer ds.Close()
				runID, err := ds.SaveThresholds(models)
				if err != nil {
					return err
				}
				logging.Info("persisted thresholds", "run_id", runID, "species", len(models))
			}

			if curveOutput != "" {
				if err := writeCurves(curveOutput, models); err != nil {
					return err
				}
			}

			header := []string{"species", "threshold", "logit_threshold", "intercept", "slope", "n", "low_confidence"}
			rows := make([][]string, 0, len(models))
			for _, m := range models {
				low := "false"
				if m.LowConfidence {
					low = "true"
				}
				rows = append(rows, []string{
					m.Species,
					detection.FormatFloat(m.Threshold),
					detection.FormatFloat(m.LogitThreshold),
					detection.FormatFloat(m.Intercept),
					detection.FormatFloat(m.Slope),
					detection.FormatFloat(float64(m.N)),
					low,
				})
			}
			return flags.writeTable(header, rows)
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64VarP(&precision, "precision", "p", settings.Analytics.Threshold.TargetPrecision, "Target probability of correctness")
	cmd.Flags().Float64Var(&sensitivity, "sensitivity", settings.Analytics.Threshold.Sensitivity, "Logit rescaling factor")
	cmd.Flags().BoolVar(&backtransform, "backtransform", settings.Analytics.Threshold.Backtransform, "Fit on logit(confidence)/sensitivity scale")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on confidence values of exactly 0 or 1 instead of filtering them")
	cmd.Flags().IntVar(&minObs, "min-observations", settings.Analytics.Threshold.MinObservations, "Observation count below which fits are flagged low confidence")
	cmd.Flags().StringVar(&curveOutput, "curves", "", "Also write per-species prediction curves to this CSV")

	return cmd
}

// writeCurves writes the pooled prediction curves of all fitted models.
func writeCurves(path string, models []*calibration.Model) error {
	header := []string{"species", "confidence", "probability", "lower", "upper"}
	var rows [][]string
	for _, m := range models {
		for _, pt := range m.Curve {
			rows = append(rows, []string{
				m.Species,
				detection.FormatFloat(pt.Confidence),
				detection.FormatFloat(pt.Probability),
				detection.FormatFloat(pt.Lower),
				detection.FormatFloat(pt.Upper),
			})
		}
	}
	out := inputFlags{output: path}
	return out.writeTable(header, rows)
}
