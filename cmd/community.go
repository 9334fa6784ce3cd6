package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/birdmetrics/internal/community"
	"github.com/tphakala/birdmetrics/internal/conf"
	"github.com/tphakala/birdmetrics/internal/detection"
)

// communityCommand creates the site-by-species matrix subcommand.
func communityCommand(settings *conf.Settings) *cobra.Command {
	var flags inputFlags
	var presenceAbsence bool

	cmd := &cobra.Command{
		Use:   "community",
		Short: "Build a site-by-species community matrix",
		Long: `Pivot long-form detection or abundance records into a dense matrix with
sites as rows and species as columns. Duplicate observations are summed in
abundance mode and combined by presence in presence/absence mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := flags.loadRecords(detection.RoleSite)
			if err != nil {
				return err
			}

			obs := make([]community.Observation, 0, len(records))
			for i := range records {
				obs = append(obs, community.Observation{
					Site:    records[i].Site,
					Species: records[i].Species,
					Value:   records[i].AbundanceOrPresence(),
				})
			}

			m, err := community.Build(obs, presenceAbsence)
			if err != nil {
				return err
			}

			header := append([]string{"site"}, m.Species...)
			rows := make([][]string, 0, len(m.Sites))
			for _, site := range m.Sites {
				row := make([]string, 0, len(m.Species)+1)
				row = append(row, site)
				for _, v := range m.Row(site) {
					row = append(row, detection.FormatFloat(v))
				}
				rows = append(rows, row)
			}
			return flags.writeTable(header, rows)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&presenceAbsence, "presence-absence", false, "Emit 0/1 presence flags instead of summed abundance")

	return cmd
}
