package main

import (
	"github.com/spf13/cobra"

	appstate "github.com/saiset-co/sai-appstate"
)

func (c *cli) metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the metrics recorded while opening the state",
		Long: `metrics opens the configured state, lets the theme resolve its initial
mode and prints every counter and histogram recorded so far. It fails when
metrics.enabled is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				values, err := app.Metrics().GetMetrics()
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), values)
			})
		},
	}
}
