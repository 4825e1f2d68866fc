package aggregation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Shard is the output of one worker: outcomes for the map units it rated plus
// the warnings raised while rating them.
type Shard struct {
	Outcomes []Outcome
	Warnings *domain.WarningLog
}

type Engine struct {
	workers int
}

// NewEngine returns an engine running up to workers shards at once; zero or
// less means one per CPU.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{workers: workers}
}

func (e *Engine) workersFor(plan *Plan) int {
	if plan.Request.Workers > 0 {
		return plan.Request.Workers
	}
	return e.workers
}

// Run rates every map unit. Map units are split into contiguous shards, each
// owned by one goroutine; shards come back in input order. A request-level
// worker count overrides the engine default.
func (e *Engine) Run(ctx context.Context, plan *Plan, units []domain.MapUnitRows) ([]Shard, error) {
	n := min(e.workersFor(plan), len(units))
	if n == 0 {
		return []Shard{}, nil
	}
	size := (len(units) + n - 1) / n

	shards := make([]Shard, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range shards {
		lo := min(i*size, len(units))
		hi := min(lo+size, len(units))
		g.Go(func() error {
			s := &shard{plan: plan, warnings: domain.NewWarningLog(plan.WarningLimit)}
			out := make([]Outcome, 0, hi-lo)
			for _, u := range units[lo:hi] {
				if err := gctx.Err(); err != nil {
					return err
				}
				out = append(out, s.rateMapUnit(u))
			}
			shards[i] = Shard{Outcomes: out, Warnings: s.warnings}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", plan.Attribute.Name, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("attribute", plan.Attribute.Name).
		Str("method", string(plan.Request.Method)).
		Int("map_units", len(units)).
		Int("shards", n).
		Msg("aggregated map units")
	return shards, nil
}

// Stream rates map units as they arrive on in until it is closed. Each worker
// pulls the next map unit and drops its rows once rated, so only the units in
// flight are held in memory. Shards come back in no particular order, and
// workers that rated nothing return no shard.
func (e *Engine) Stream(ctx context.Context, plan *Plan, in <-chan domain.MapUnitRows) ([]Shard, error) {
	n := e.workersFor(plan)
	shards := make([]Shard, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := range shards {
		g.Go(func() error {
			s := &shard{plan: plan, warnings: domain.NewWarningLog(plan.WarningLimit)}
			var out []Outcome
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case u, ok := <-in:
					if !ok {
						shards[i] = Shard{Outcomes: out, Warnings: s.warnings}
						return nil
					}
					out = append(out, s.rateMapUnit(u))
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", plan.Attribute.Name, err)
	}

	out := make([]Shard, 0, n)
	rated := 0
	for _, s := range shards {
		if len(s.Outcomes) == 0 && s.Warnings.Count == 0 {
			continue
		}
		rated += len(s.Outcomes)
		out = append(out, s)
	}
	zerolog.Ctx(ctx).Debug().
		Str("attribute", plan.Attribute.Name).
		Str("method", string(plan.Request.Method)).
		Int("map_units", rated).
		Int("workers", n).
		Msg("aggregated map unit stream")
	return out, nil
}
