package terminal

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/de-tools/soil-atlas/pkg/runtime/app"
	"github.com/de-tools/soil-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/soil-atlas/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	factory  app.Factory
	cfgPath  string
	app      *app.App
	reporter *export.Reporter
	output   io.Writer
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Factory app.Factory
	Output  io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Factory == nil {
		opts.Factory = app.Load
	}

	cli := &CLI{
		factory:  opts.Factory,
		reporter: export.NewReporter(opts.Output),
		output:   opts.Output,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

// ExecuteContext runs the selected command and closes the databases it opened.
func (cli *CLI) ExecuteContext(ctx context.Context) error {
	err := cli.rootCmd.ExecuteContext(ctx)
	if cli.app != nil {
		err = errors.Join(err, cli.app.Close())
		cli.app = nil
	}
	return err
}

// SetArgs overrides os.Args, mostly for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "soil-atlas",
		Short:         "Soil survey map unit ratings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.output)
	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "", "Path to the YAML config file")

	cmd.AddCommand(commands.NewRateCmd(cli.getApp, cli.reporter))
	cmd.AddCommand(commands.NewAttributeCmd(cli.getApp, NewReporter(cli.output)))
	cmd.AddCommand(commands.NewBatchCmd(cli.getApp))
	cmd.AddCommand(commands.NewRunsCmd(cli.getApp))
	cmd.AddCommand(commands.NewImportCmd(cli.getApp))
	cmd.AddCommand(commands.NewSeedCmd(cli.getApp))

	return cmd
}

func (cli *CLI) getApp(ctx context.Context) (*app.App, error) {
	if cli.app != nil {
		return cli.app, nil
	}
	a, err := cli.factory(ctx, cli.cfgPath)
	if err != nil {
		return nil, err
	}
	cli.app = a
	return a, nil
}
