package commands

import (
	"fmt"
	"strings"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/services/batch"
	"github.com/spf13/cobra"
)

type BatchCmd struct {
	flags      RequestFlags
	attributes []string
	upload     bool
	apps       AppSource
}

func NewBatchCmd(apps AppSource) *cobra.Command {
	bc := &BatchCmd{apps: apps}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Rate several attributes as one persisted run",
		RunE:  bc.run,
	}

	bc.flags.Bind(cmd)
	cmd.Flags().StringArrayVar(&bc.attributes, "attribute", nil, "Attribute to rate (repeatable)")
	cmd.Flags().BoolVar(&bc.upload, "upload", false, "Upload every table as CSV to the configured bucket")

	_ = cmd.MarkFlagRequired("attribute")

	return cmd
}

func (bc *BatchCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	requests := make([]domain.AggregationRequest, 0, len(bc.attributes))
	for _, name := range bc.attributes {
		req, err := bc.flags.Request(name)
		if err != nil {
			return err
		}
		requests = append(requests, req)
	}

	a, err := bc.apps(ctx)
	if err != nil {
		return err
	}
	if bc.upload && a.Exporter == nil {
		return fmt.Errorf("no export bucket configured")
	}

	out := cmd.OutOrStdout()
	run, err := a.Batch.Execute(ctx, requests, func(p batch.RunnerProgress) {
		note := ""
		if p.NoQualifyingData {
			note = " (no qualifying data)"
		}
		fmt.Fprintf(out, "[%d/%d] %s: %d map units%s\n", p.Processed, p.Total, p.Attribute, p.MapUnits, note)
	})
	if run != nil {
		fmt.Fprintf(out, "run %s %s\n", run.ID, run.Status)
	}
	if err != nil {
		return err
	}

	if bc.upload {
		for i, req := range requests {
			table, err := a.Rating.Aggregate(ctx, req)
			if err != nil {
				return err
			}
			key, err := a.Exporter.Export(ctx, run.ID, table)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "uploaded %s (%d/%d)\n", key, i+1, len(requests))
		}
	}
	return nil
}

type RunsCmd struct {
	statuses []string
	apps     AppSource
}

func NewRunsCmd(apps AppSource) *cobra.Command {
	rc := &RunsCmd{apps: apps}
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted rating runs",
		RunE:  rc.run,
	}

	cmd.Flags().StringSliceVar(&rc.statuses, "status", nil, "Only list runs with these statuses")

	return cmd
}

func (rc *RunsCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := rc.apps(ctx)
	if err != nil {
		return err
	}

	statuses := make([]domain.RunStatus, 0, len(rc.statuses))
	for _, s := range rc.statuses {
		statuses = append(statuses, domain.RunStatus(s))
	}
	list, err := a.Batch.List(ctx, statuses)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found")
		return nil
	}
	for _, r := range list {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s  %d/%d  %s\n",
			r.ID, r.Status, r.Processed, len(r.Attributes), strings.Join(r.Attributes, ", "))
	}
	return nil
}
