package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/runtime/terminal/export"
	csvexport "github.com/de-tools/soil-atlas/pkg/store/export"
	"github.com/spf13/cobra"
)

// RequestFlags binds the aggregation request options shared by rate and batch.
type RequestFlags struct {
	method     string
	tieBreak   string
	cutoff     float64
	nulls      string
	top        float64
	bottom     float64
	firstMonth int
	lastMonth  int
	primary    string
	secondary  string
	target     string
	limiting   string
	fuzzy      bool
	majorOnly  bool
	workers    int
}

func (f *RequestFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.method, "method", "", "Aggregation method (defaults to the attribute's)")
	cmd.Flags().StringVar(&f.tieBreak, "tie-break", "", "Tie break direction: lower or higher")
	cmd.Flags().Float64Var(&f.cutoff, "cutoff", 0, "Minimum component percent")
	cmd.Flags().StringVar(&f.nulls, "nulls", "", "Null rating policy: include or exclude")
	cmd.Flags().Float64Var(&f.top, "top", 0, "Top of the horizon depth range in cm")
	cmd.Flags().Float64Var(&f.bottom, "bottom", 0, "Bottom of the horizon depth range in cm")
	cmd.Flags().IntVar(&f.firstMonth, "first-month", 0, "First month of the month range (1-12)")
	cmd.Flags().IntVar(&f.lastMonth, "last-month", 0, "Last month of the month range (1-12)")
	cmd.Flags().StringVar(&f.primary, "primary", "", "Primary constraint value, e.g. an interpretation rule")
	cmd.Flags().StringVar(&f.secondary, "secondary", "", "Secondary constraint value")
	cmd.Flags().StringVar(&f.target, "target", "", "Rating counted by percent_present")
	cmd.Flags().StringVar(&f.limiting, "limiting", "", "Limiting direction: least or most")
	cmd.Flags().BoolVar(&f.fuzzy, "fuzzy", false, "Rate the fuzzy value of an interpretation")
	cmd.Flags().BoolVar(&f.majorOnly, "major-only", false, "Only rate major components")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel shards (0 uses the configured default)")
}

// Request builds the request for one attribute from the bound flags.
func (f *RequestFlags) Request(attribute string) (domain.AggregationRequest, error) {
	req := domain.AggregationRequest{
		Attribute:  attribute,
		TieBreak:   domain.TieBreak(f.tieBreak),
		Cutoff:     f.cutoff,
		NullPolicy: domain.NullPolicy(f.nulls),
		Primary:    f.primary,
		Secondary:  f.secondary,
		Target:     f.target,
		Limiting:   domain.Limiting(f.limiting),
		Fuzzy:      f.fuzzy,
		MajorOnly:  f.majorOnly,
		Workers:    f.workers,
	}
	if f.method != "" {
		m, err := domain.ParseMethod(f.method)
		if err != nil {
			return req, err
		}
		req.Method = m
	}
	if f.bottom > 0 {
		req.Depth = &domain.DepthRange{Top: f.top, Bottom: f.bottom}
	}
	if f.firstMonth > 0 || f.lastMonth > 0 {
		req.Months = &domain.MonthRange{First: f.firstMonth, Last: f.lastMonth}
	}
	return req, nil
}

type RateCmd struct {
	flags    RequestFlags
	format   string
	upload   bool
	apps     AppSource
	reporter *export.Reporter
}

func NewRateCmd(apps AppSource, reporter *export.Reporter) *cobra.Command {
	rc := &RateCmd{apps: apps, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "rate <attribute>",
		Short: "Rate every map unit for one attribute",
		Args:  cobra.ExactArgs(1),
		RunE:  rc.run,
	}

	rc.flags.Bind(cmd)
	cmd.Flags().StringVar(&rc.format, "format", "table", "Output format: table, json or csv")
	cmd.Flags().BoolVar(&rc.upload, "upload", false, "Upload the table as CSV to the configured bucket")

	return cmd
}

func (rc *RateCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	req, err := rc.flags.Request(args[0])
	if err != nil {
		return err
	}

	a, err := rc.apps(ctx)
	if err != nil {
		return err
	}
	table, err := a.Rating.Aggregate(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to rate %s: %w", req.Attribute, err)
	}

	if rc.upload {
		if a.Exporter == nil {
			return fmt.Errorf("no export bucket configured")
		}
		key, err := a.Exporter.Export(ctx, "", table)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "uploaded %s\n", key)
	}

	return writeTable(cmd.OutOrStdout(), rc.format, rc.reporter, table)
}

func writeTable(w io.Writer, format string, reporter *export.Reporter, table *domain.RatingTable) error {
	switch format {
	case "table":
		return reporter.Handle(table)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	case "csv":
		return csvexport.WriteCSV(w, table)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
