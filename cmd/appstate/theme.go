package main

import (
	"fmt"

	"github.com/spf13/cobra"

	appstate "github.com/saiset-co/sai-appstate"
	"github.com/saiset-co/sai-appstate/types"
)

func (c *cli) themeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Read or change the light/dark theme",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), app.Theme().Current())
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <light|dark>",
		Short: "Set the theme and record it as an explicit choice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := types.ParseThemeMode(args[0])
			if err != nil {
				return err
			}

			return c.run(cmd, func(app *appstate.App) error {
				if err := app.Theme().Set(mode); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), app.Theme().Current())
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between light and dark",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), app.Theme().Toggle())
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Follow the system preference and print every theme change until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				out := cmd.OutOrStdout()

				unsubscribe := app.Theme().Subscribe(func(mode types.ThemeMode) {
					_, _ = fmt.Fprintln(out, mode)
				})
				defer unsubscribe()

				if !app.Config().Theme.WatchSystem {
					unwatch, err := app.Theme().WatchSystemTheme()
					if err != nil {
						return err
					}
					defer unwatch()
				}

				_, _ = fmt.Fprintln(out, app.Theme().Current())
				<-cmd.Context().Done()
				return nil
			})
		},
	})

	return cmd
}
