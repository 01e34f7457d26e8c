package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ampctl-go/errcode"
	"ampctl-go/services/settings"
	"ampctl-go/types"
)

// openStore returns the configured store and a closer for it.
func openStore(c types.StoreConfig) (settings.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.Kind {
	case "yaml":
		return settings.NewYAMLStore(c.Path), noop, nil
	case "sqlite":
		db, err := settings.OpenDBStore(c.Path)
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil
	case "memory":
		return &settings.MemStore{}, noop, nil
	}
	return nil, noop, &errcode.E{C: errcode.InvalidParams, Op: "settings.open", Msg: "kind " + c.Kind}
}

func withSettings(g *globalFlags, fn func(cs *settings.ConfigStore, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(*g)
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg.Settings)
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()

		cs := settings.NewConfigStore(store)
		fixed, err := cs.Load()
		if err != nil {
			return err
		}
		if len(fixed) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "defaults used for: %s\n", strings.Join(fixed, ", "))
		}
		return fn(cs, cmd.OutOrStdout())
	}
}

func printSettings(w io.Writer, s settings.Settings) {
	for _, f := range settings.Fields {
		fmt.Fprintf(w, "%-10s %8s %-3s  %s\n", f.Key, settings.FormatValue(f, f.Get(s)), f.Unit, f.Label)
	}
}

func settingsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or change the stored operating settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings",
		RunE: withSettings(g, func(cs *settings.ConfigStore, out io.Writer) error {
			printSettings(out, cs.Current())
			return nil
		}),
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Store the factory settings",
		RunE: withSettings(g, func(cs *settings.ConfigStore, out io.Writer) error {
			cs.ResetToDefaults()
			if err := cs.Save(); err != nil {
				return err
			}
			printSettings(out, cs.Current())
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set key=value...",
		Short: "Validate and store settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(g, func(cs *settings.ConfigStore, out io.Writer) error {
				values := make(map[string]string, len(args))
				for _, p := range args {
					k, v, ok := strings.Cut(p, "=")
					if !ok {
						return &errcode.E{C: errcode.InvalidParams, Op: "settings.set", Msg: p}
					}
					values[strings.ToLower(k)] = v
				}
				if errs := cs.Apply(values); len(errs) > 0 {
					for _, err := range errs[1:] {
						fmt.Fprintln(cmd.ErrOrStderr(), err)
					}
					return errs[0]
				}
				if err := cs.Save(); err != nil {
					return err
				}
				printSettings(out, cs.Current())
				return nil
			})(cmd, args)
		},
	}

	cmd.AddCommand(show, reset, set)
	return cmd
}
