package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	appstate "github.com/saiset-co/sai-appstate"
	"github.com/saiset-co/sai-appstate/types"
	"github.com/saiset-co/sai-appstate/utils"
)

// tierOps is one cache tier seen through the flat cache API.
type tierOps struct {
	set    func(key string, value interface{})
	get    func(key string) (interface{}, bool)
	remove func(key string)
	clear  func()
	keys   func() []string
}

func (c *cli) tierOf(state types.StateCache) (*tierOps, error) {
	switch types.Tier(c.tier) {
	case types.TierPersistent:
		return &tierOps{
			set:    state.SetPersistent,
			get:    state.GetPersistent,
			remove: state.RemovePersistent,
			clear:  state.ClearPersistent,
			keys:   state.PersistentKeys,
		}, nil
	case types.TierSession:
		return &tierOps{
			set:    state.SetSession,
			get:    state.GetSession,
			remove: state.RemoveSession,
			clear:  state.ClearSession,
			keys:   state.SessionKeys,
		}, nil
	default:
		return nil, types.Errorf(types.ErrCacheTierUnknown, "tier: %s", c.tier)
	}
}

// withTier runs fn against the tier selected by --tier.
func (c *cli) withTier(cmd *cobra.Command, fn func(tier *tierOps) error) error {
	return c.run(cmd, func(app *appstate.App) error {
		tier, err := c.tierOf(app.Cache())
		if err != nil {
			return err
		}
		return fn(tier)
	})
}

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Operate on the persistent and session cache tiers",
	}

	cmd.PersistentFlags().StringVarP(&c.tier, "tier", "t", string(types.TierPersistent), "Cache tier: persistent or session")

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a cached value as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTier(cmd, func(tier *tierOps) error {
				value, found := tier.get(args[0])
				if !found {
					return types.Errorf(types.ErrInvalidParameter, "key %q not found", args[0])
				}
				return printJSON(cmd.OutOrStdout(), value)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <json>",
		Short: "Store a JSON value under key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return types.ErrCacheKeyEmpty
			}

			value, err := parseJSON(args[1])
			if err != nil {
				return err
			}

			return c.withTier(cmd, func(tier *tierOps) error {
				tier.set(args[0], value)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <key>",
		Aliases: []string{"remove"},
		Short:   "Remove key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTier(cmd, func(tier *tierOps) error {
				tier.remove(args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "List keys in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withTier(cmd, func(tier *tierOps) error {
				return printJSON(cmd.OutOrStdout(), tier.keys())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every key of the tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withTier(cmd, func(tier *tierOps) error {
				tier.clear()
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print entry counts of both tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				return printJSON(cmd.OutOrStdout(), app.Cache().Stats())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Print both tiers as one JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(app *appstate.App) error {
				return printJSON(cmd.OutOrStdout(), app.Cache().Export())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file|->",
		Short: "Merge an exported document into the tiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := readSnapshot(cmd, args[0])
			if err != nil {
				return err
			}

			return c.run(cmd, func(app *appstate.App) error {
				app.Cache().Import(snapshot)
				return printJSON(cmd.OutOrStdout(), app.Cache().Stats())
			})
		},
	})

	return cmd
}

func readSnapshot(cmd *cobra.Command, source string) (types.CacheSnapshot, error) {
	var data []byte
	var err error

	if source == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return types.CacheSnapshot{}, types.WrapError(err, "failed to read snapshot")
	}

	var snapshot types.CacheSnapshot
	if err := utils.Unmarshal(data, &snapshot); err != nil {
		return types.CacheSnapshot{}, types.Errorf(types.ErrCacheSnapshotFormat, "%v", err)
	}
	return snapshot, nil
}
