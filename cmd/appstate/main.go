package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appstate "github.com/saiset-co/sai-appstate"
	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

const configEnv = "APPSTATE_CONFIG"

type cli struct {
	configPath string
	tier       string
	opts       []appstate.Option
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts ...appstate.Option) *cobra.Command {
	c := &cli{opts: opts}

	root := &cobra.Command{
		Use:   "appstate",
		Short: "Inspect and change persisted application state",
		Long: `appstate operates on the durable state of an application: the persistent
and session cache tiers, saved execution state, form snapshots and the
light/dark theme.

Storage and theme settings come from the YAML file given by --config
(or $APPSTATE_CONFIG). Without one, state lives in memory for the duration
of the command.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv(configEnv), "Path to the YAML config file")

	root.AddCommand(c.themeCmd())
	root.AddCommand(c.cacheCmd())
	root.AddCommand(c.stateCmd())
	root.AddCommand(c.formCmd())
	root.AddCommand(c.configCmd())
	root.AddCommand(c.metricsCmd())

	return root
}

// run opens the app for the duration of fn.
func (c *cli) run(cmd *cobra.Command, fn func(app *appstate.App) error) error {
	app, err := appstate.New(cmd.Context(), c.configPath, c.opts...)
	if err != nil {
		return err
	}

	if err := app.Start(); err != nil {
		_ = app.Stop()
		return err
	}

	runErr := fn(app)
	if err := app.Stop(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printJSON(w io.Writer, value interface{}) error {
	data, err := utils.Marshal(value)
	if err != nil {
		return types.WrapError(err, "failed to encode output")
	}

	_, err = fmt.Fprintln(w, utils.BytesToString(data))
	return err
}

func parseJSON(raw string) (interface{}, error) {
	var value interface{}
	if err := utils.Unmarshal(utils.StringToBytes(raw), &value); err != nil {
		return nil, types.Errorf(types.ErrInvalidParameter, "value is not JSON: %v", err)
	}
	return value, nil
}
