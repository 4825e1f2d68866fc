package commands

import (
	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/services/attribute"
	"github.com/spf13/cobra"
)

// AttributeReporter prints attribute descriptors.
type AttributeReporter interface {
	Handle(attributes []domain.AttributeDescriptor) error
}

type AttributeCmd struct {
	primary   string
	secondary string
	fuzzy     bool
	apps      AppSource
	reporter  AttributeReporter
}

func NewAttributeCmd(apps AppSource, reporter AttributeReporter) *cobra.Command {
	ac := &AttributeCmd{apps: apps, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "attribute [name]",
		Short: "Describe one attribute, or list every attribute in the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.primary, "primary", "", "Primary constraint value")
	cmd.Flags().StringVar(&ac.secondary, "secondary", "", "Secondary constraint value")
	cmd.Flags().BoolVar(&ac.fuzzy, "fuzzy", false, "Resolve the fuzzy rating column")

	return cmd
}

func (ac *AttributeCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := ac.apps(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		list, err := a.Rating.Attributes(ctx)
		if err != nil {
			return err
		}
		return ac.reporter.Handle(list)
	}

	desc, err := a.Rating.ResolveAttribute(ctx, args[0], attribute.Constraints{
		Primary:   ac.primary,
		Secondary: ac.secondary,
		Fuzzy:     ac.fuzzy,
	})
	if err != nil {
		return err
	}
	return ac.reporter.Handle([]domain.AttributeDescriptor{*desc})
}
