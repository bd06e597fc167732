package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/hxview/lib/generator"
)

var version = "0.1.0"

// rootOptions holds flags shared by every command.
type rootOptions struct {
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "hxview",
		Short: "Server-rendered view composition for htmx",
		Long: `hxview composes server-rendered views into regions, routes URL
fragments to views and keeps one application shell per browser session.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "",
		"config file (default: ./hxview.yaml or ~/.config/hxview/hxview.yaml)")

	root.AddCommand(
		newServeCmd(opts),
		newRoutesCmd(opts),
		newInitCmd(),
		newGenerateCmd(),
		newCleanCmd(),
		newVersionCmd(),
	)
	return root
}

func newGenerateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "generate [packages]",
		Short: "Generate view registration code (views_hx.go)",
		Long: `Generate scans packages for types embedding *hxview.View that have a
New<Type>() (*<Type>, error) constructor and writes a RegisterViews
function into views_hx.go.

Examples:
  hxview generate ./...                Generate for all packages
  hxview generate ./views              Generate for one package
  hxview generate --dry-run ./...      Preview generation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := generator.New(generator.Options{
				DryRun: dryRun,
				Out:    cmd.OutOrStdout(),
			})
			return gen.Generate(defaultPatterns(args)...)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be generated without writing files")
	return cmd
}

func newCleanCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean [packages]",
		Short: "Remove generated files (*_hx.go)",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := generator.New(generator.Options{
				DryRun: dryRun,
				Out:    cmd.OutOrStdout(),
			})
			return gen.Clean(defaultPatterns(args)...)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be removed without deleting files")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hxview version %s\n", version)
		},
	}
}

func defaultPatterns(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}
	return args
}
