package main

import (
	"github.com/spf13/cobra"

	appstate "github.com/saiset-co/sai-appstate"
	"github.com/saiset-co/sai-appstate/types"
)

func (c *cli) stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Save or recover the execution state",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save <json-object>",
		Short: "Save a JSON object as the execution state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseJSON(args[0])
			if err != nil {
				return err
			}

			payload, ok := value.(map[string]interface{})
			if !ok {
				return types.Errorf(types.ErrInvalidParameter, "execution state must be a JSON object")
			}

			return c.run(cmd, func(app *appstate.App) error {
				app.Cache().SaveExecutionState(payload)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "recover",
		Short: "Print the saved execution state, or null when there is none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				state, found := app.Cache().RecoverExecutionState()
				if !found {
					return printJSON(cmd.OutOrStdout(), nil)
				}
				return printJSON(cmd.OutOrStdout(), state)
			})
		},
	})

	return cmd
}

func (c *cli) formCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Save, recover or expire form snapshots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save <name> <json>",
		Short: "Snapshot form data",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseJSON(args[1])
			if err != nil {
				return err
			}

			return c.run(cmd, func(app *appstate.App) error {
				app.Cache().SaveFormData(args[0], data)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "recover <name>",
		Short: "Print saved form data, or null when absent or expired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				data, _ := app.Cache().RecoverFormData(args[0])
				return printJSON(cmd.OutOrStdout(), data)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "expire <name>",
		Short: "Drop the form snapshot if it is past its TTL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				return printJSON(cmd.OutOrStdout(), map[string]bool{
					"expired": app.Cache().ClearExpiredFormData(args[0]),
				})
			})
		},
	})

	return cmd
}
