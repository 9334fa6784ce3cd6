// Package cmd wires the analysis engines into the birdmetrics command line.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "birdmetrics",
		Short: "Ecoacoustic detection analytics CLI",
		Long: `birdmetrics turns raw species detection tables from an acoustic classifier
into site-level ecological summaries: vocal activity rates, community
matrices, diversity indices and calibrated confidence thresholds.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if settings.Debug {
				logging.SetLevel(slog.LevelDebug)
			}
		},
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		activityCommand(settings),
		communityCommand(settings),
		diversityCommand(settings),
		thresholdCommand(settings),
		sampleCommand(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags configures global flags shared by every subcommand.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	cmd.PersistentFlags().StringVar(&settings.Output.Database, "save-db", settings.Output.Database, "Persist results into this sqlite database")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
