package main

import (
	"fmt"

	"github.com/spf13/cobra"

	appstate "github.com/saiset-co/sai-appstate"
)

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read the loaded configuration",
	}

	var fallback string
	get := &cobra.Command{
		Use:   "get <path>",
		Short: "Print the value at a dotted config path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var defaultValue interface{}
			if cmd.Flags().Changed("default") {
				value, err := parseJSON(fallback)
				if err != nil {
					return err
				}
				defaultValue = value
			}

			return c.run(cmd, func(app *appstate.App) error {
				if cmd.Flags().Changed("default") {
					return printJSON(cmd.OutOrStdout(), app.ConfigManager().GetValue(args[0], defaultValue))
				}

				var value interface{}
				if err := app.ConfigManager().GetAs(args[0], &value); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), value)
			})
		},
	}
	get.Flags().StringVar(&fallback, "default", "", "JSON value printed when the path is missing")
	cmd.AddCommand(get)

	cmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "List every leaf path of the loaded configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				for _, path := range app.ConfigManager().GetAllPaths() {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
						return err
					}
				}
				return nil
			})
		},
	})

	return cmd
}
