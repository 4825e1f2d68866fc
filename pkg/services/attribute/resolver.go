// Package attribute resolves a requested attribute name into the descriptor
// the rest of the rating pipeline works from.
package attribute

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/soil-atlas/pkg/adapters"
	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/store/catalog"
	"github.com/rs/zerolog"
)

// FuzzyPrecision is the minimum number of decimals kept for fuzzy ratings.
const FuzzyPrecision = 2

// Constraints are the caller-supplied values that narrow an attribute.
type Constraints struct {
	Primary   string
	Secondary string
	// Fuzzy asks for the continuous fuzzy value instead of the class.
	Fuzzy bool
}

type Resolver struct {
	catalog catalog.Attributes
}

func NewResolver(attributes catalog.Attributes) (*Resolver, error) {
	if attributes == nil {
		return nil, fmt.Errorf("attribute catalog is nil")
	}
	return &Resolver{catalog: attributes}, nil
}

// Resolve looks the attribute up, checks its constraints and applies the
// fuzzy substitution. The returned descriptor is owned by the caller.
func (r *Resolver) Resolve(ctx context.Context, name string, c Constraints) (*domain.AttributeDescriptor, error) {
	logger := zerolog.Ctx(ctx)

	rec, err := r.catalog.Attribute(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, domain.NewRatingError(domain.ErrUnknownAttribute, name, "")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve attribute %q: %w", name, err)
	}

	desc, err := adapters.MapAttributeRecordToDomain(*rec)
	if err != nil {
		return nil, err
	}

	if desc.PrimaryColumn != "" && c.Primary == "" {
		return nil, domain.NewRatingError(domain.ErrAmbiguousConstraint, desc.Name,
			fmt.Sprintf("a value for %s is required", desc.PrimaryColumn))
	}
	if desc.SecondaryColumn != "" && c.Secondary == "" {
		return nil, domain.NewRatingError(domain.ErrAmbiguousConstraint, desc.Name,
			fmt.Sprintf("a value for %s is required", desc.SecondaryColumn))
	}
	desc.PrimaryValue = c.Primary
	desc.SecondaryValue = c.Secondary

	if c.Fuzzy {
		if rec.FuzzyColumn == "" {
			return nil, fmt.Errorf("attribute %q has no fuzzy values", desc.Name)
		}
		// must happen before the domain is built: it switches the data type branch
		desc.Column = rec.FuzzyColumn
		desc.DataType = domain.DataTypeNumeric
		desc.Method = domain.MethodWeightedAverage
		desc.Display = &domain.DisplayRange{Min: 0, Max: 1}
		desc.Precision = max(desc.Precision, FuzzyPrecision)
		desc.NotRated = ""
		desc.DomainName = ""
		desc.Fuzzy = true
	}

	logger.Debug().
		Str("attribute", desc.Name).
		Str("table", desc.Table).
		Str("column", desc.Column).
		Str("level", string(desc.Level)).
		Bool("fuzzy", desc.Fuzzy).
		Msg("resolved attribute")

	return desc, nil
}
