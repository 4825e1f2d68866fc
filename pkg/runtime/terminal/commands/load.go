package commands

import (
	"fmt"

	"github.com/de-tools/soil-atlas/pkg/store/catalog"
	"github.com/spf13/cobra"
)

type ImportCmd struct {
	table string
	file  string
	apps  AppSource
}

func NewImportCmd(apps AppSource) *cobra.Command {
	ic := &ImportCmd{apps: apps}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Append a CSV survey extract to a table of the local database",
		RunE:  ic.run,
	}

	cmd.Flags().StringVar(&ic.table, "table", "", "Survey table, e.g. component")
	cmd.Flags().StringVar(&ic.file, "file", "", "CSV file with a header row")

	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (ic *ImportCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := ic.apps(ctx)
	if err != nil {
		return err
	}
	n, err := a.Loader.ImportCSV(ctx, ic.table, ic.file)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows into %s\n", n, ic.table)
	return nil
}

type SeedCmd struct {
	file string
	apps AppSource
}

func NewSeedCmd(apps AppSource) *cobra.Command {
	sc := &SeedCmd{apps: apps}
	cmd := &cobra.Command{
		Use:   "seed-catalog",
		Short: "Write an attribute catalog into the sdvattribute and sdvdomain tables",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.file, "file", "", "YAML catalog (defaults to the bundled one)")

	return cmd
}

func (sc *SeedCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	var (
		cat *catalog.FileCatalog
		err error
	)
	if sc.file != "" {
		cat, err = catalog.LoadFile(sc.file)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return err
	}

	a, err := sc.apps(ctx)
	if err != nil {
		return err
	}
	attributes, err := cat.List(ctx)
	if err != nil {
		return err
	}
	if err := a.Loader.SeedCatalog(ctx, attributes, cat.Domains()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d attributes\n", len(attributes))
	return nil
}
