package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pthm/hxview"
	"github.com/pthm/hxview/example"
	"github.com/pthm/hxview/lib/config"
)

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Routes prints the configured route table in match order. Earlier
routes win when several patterns match a fragment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			reg, routes, err := newRegistry(cfg)
			if err != nil {
				return err
			}

			// Building the router compiles every pattern.
			router, err := hxview.NewRouter(hxview.RouterOptions{
				Routes:    routes,
				ViewsPath: cfg.ViewsPath,
				Loader:    reg,
				Logger:    hxview.DiscardLogger(),
			})
			if err != nil {
				return err
			}
			defer router.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATTERN\tVIEW\tMODULE")
			for _, r := range router.Routes() {
				fmt.Fprintf(w, "/%s\t%s\t%s%s\n", r.URL, r.View, router.ViewsPath(), r.View)
			}
			return w.Flush()
		},
	}
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) > 0 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg := config.Defaults()
			cfg.Routes = example.Routes()
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
