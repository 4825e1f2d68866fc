// Package rating is the entry point of the rating engine: it resolves an
// attribute and runs one aggregation request end to end.
package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/de-tools/soil-atlas/pkg/adapters"
	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/services/aggregation"
	"github.com/de-tools/soil-atlas/pkg/services/attribute"
	"github.com/de-tools/soil-atlas/pkg/services/emitter"
	"github.com/de-tools/soil-atlas/pkg/services/flatten"
	"github.com/de-tools/soil-atlas/pkg/services/ratingdomain"
	"github.com/de-tools/soil-atlas/pkg/store/catalog"
	"github.com/de-tools/soil-atlas/pkg/store/source"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Service interface {
	ResolveAttribute(ctx context.Context, name string, c attribute.Constraints) (*domain.AttributeDescriptor, error)
	Aggregate(ctx context.Context, req domain.AggregationRequest) (*domain.RatingTable, error)
	Attributes(ctx context.Context) ([]domain.AttributeDescriptor, error)
}

// streamBuffer is how many flattened map units may wait for a worker.
const streamBuffer = 64

type Settings struct {
	// Workers is the default shard count; zero means one per CPU.
	Workers int
	// WarningLimit caps the warning details kept on a table.
	WarningLimit int
}

type service struct {
	catalog   catalog.Catalog
	resolver  *attribute.Resolver
	flattener *flatten.Flattener
	engine    *aggregation.Engine
	settings  Settings
}

func NewService(src source.RowSource, cat catalog.Catalog, settings Settings) (Service, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	resolver, err := attribute.NewResolver(cat)
	if err != nil {
		return nil, err
	}
	flattener, err := flatten.New(src)
	if err != nil {
		return nil, err
	}
	if settings.WarningLimit <= 0 {
		settings.WarningLimit = domain.DefaultWarningLimit
	}
	return &service{
		catalog:   cat,
		resolver:  resolver,
		flattener: flattener,
		engine:    aggregation.NewEngine(settings.Workers),
		settings:  settings,
	}, nil
}

func (s *service) ResolveAttribute(ctx context.Context, name string, c attribute.Constraints) (*domain.AttributeDescriptor, error) {
	return s.resolver.Resolve(ctx, name, c)
}

func (s *service) Attributes(ctx context.Context) ([]domain.AttributeDescriptor, error) {
	records, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	out := make([]domain.AttributeDescriptor, 0, len(records))
	for _, rec := range records {
		desc, err := adapters.MapAttributeRecordToDomain(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *desc)
	}
	return out, nil
}

// Aggregate rates every map unit for one request. Resolution errors and a
// method that cannot reduce the attribute's data type return before any
// survey row is read. Map units stream from the flattener straight into the
// engine workers. When no map unit has a real qualifying value the table
// comes back with placeholder rows and NoQualifyingData set.
func (s *service) Aggregate(ctx context.Context, req domain.AggregationRequest) (*domain.RatingTable, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	desc, err := s.resolver.Resolve(ctx, req.Attribute, attribute.Constraints{
		Primary:   req.Primary,
		Secondary: req.Secondary,
		Fuzzy:     req.Fuzzy,
	})
	if err != nil {
		return nil, err
	}
	req = req.Resolve(desc)
	if err := aggregation.CheckMethod(desc, req.Method); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	logger := zerolog.Ctx(ctx).With().
		Str("attribute", desc.Name).
		Str("method", string(req.Method)).
		Logger()

	observed, err := s.flattener.Observed(ctx, desc)
	if err != nil {
		return nil, err
	}
	dom, err := s.buildDomain(ctx, desc, req, observed)
	if err != nil {
		return nil, err
	}
	plan, err := aggregation.NewPlan(desc, req, dom, s.settings.WarningLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	warnings := domain.NewWarningLog(s.settings.WarningLimit)
	units := make(chan domain.MapUnitRows, streamBuffer)
	var (
		stats  *flatten.Stats
		shards []aggregation.Shard
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.flattener.Stream(gctx, desc, flatten.OptionsFor(req), warnings, units)
		return err
	})
	g.Go(func() error {
		var err error
		shards, err = s.engine.Stream(gctx, plan, units)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := emitter.Emit(plan, shards, warnings)
	table.NoQualifyingData = stats.Qualified == 0

	event := logger.Info()
	if table.NoQualifyingData {
		event = logger.Warn()
	}
	event.
		Int("map_units", len(table.Rows)).
		Int("components", stats.Components).
		Int("leaves", stats.Leaves).
		Int("warnings", table.WarningCount).
		Bool("no_qualifying_data", table.NoQualifyingData).
		Msg("rated attribute")

	return table, nil
}

func (s *service) buildDomain(ctx context.Context, desc *domain.AttributeDescriptor, req domain.AggregationRequest, observed []string) (*ratingdomain.RatingDomain, error) {
	var legal []string
	if desc.DataType == domain.DataTypeClass {
		name := desc.DomainName
		if name == "" {
			name = desc.Name
		}
		entries, err := s.catalog.Domain(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("look up domain of %q: %w", desc.Name, err)
		}
		legal = catalog.Values(entries)
	}

	dom, err := ratingdomain.Build(ratingdomain.Input{
		DataType: desc.DataType,
		Legal:    legal,
		NotRated: desc.NotRated,
		TieBreak: req.TieBreak,
		Observed: observed,
	})
	if errors.Is(err, domain.ErrEmptyDomain) {
		return nil, domain.NewRatingError(domain.ErrEmptyDomain, desc.Name, "no legal values and no observed data")
	}
	if err != nil {
		return nil, fmt.Errorf("build rating domain of %q: %w", desc.Name, err)
	}
	if dom.Synthesized() {
		zerolog.Ctx(ctx).Debug().Str("attribute", desc.Name).Strs("values", dom.Legal()).
			Msg("rating domain synthesized from observed values")
	}
	return dom, nil
}
