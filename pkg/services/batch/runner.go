package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/soil-atlas/pkg/adapters"
	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/models/store"
	"github.com/de-tools/soil-atlas/pkg/services/rating"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/ratings"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/runs"
	"github.com/rs/zerolog"
)

// Runner rates the requests of one run in order, persisting each rating
// table together with the run progress in a single transaction.
type Runner struct {
	run         *store.Run
	requests    []domain.AggregationRequest
	db          *sql.DB
	runStore    runs.Store
	ratingStore ratings.Store
	rater       rating.Service
	done        chan struct{}
	progress    chan RunnerProgress
}

type RunnerProgress struct {
	Attribute        string
	Processed        int
	Total            int
	MapUnits         int
	NoQualifyingData bool
}

func NewRunner(
	run *store.Run,
	requests []domain.AggregationRequest,
	db *sql.DB,
	runStore runs.Store,
	ratingStore ratings.Store,
	rater rating.Service,
) *Runner {
	return &Runner{
		run:         run,
		requests:    requests,
		db:          db,
		runStore:    runStore,
		ratingStore: ratingStore,
		rater:       rater,
		done:        make(chan struct{}),
		progress:    make(chan RunnerProgress, len(requests)),
	}
}

func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Progress yields one update per rated request and is closed when the run ends.
func (r *Runner) Progress() <-chan RunnerProgress {
	return r.progress
}

// Run returns the final status. A cancelled context stops the run between
// two requests; tables already stored are kept.
func (r *Runner) Run(ctx context.Context) (domain.RunStatus, error) {
	logger := zerolog.Ctx(ctx).With().Str("run", r.run.ID).Logger()
	ctx = logger.WithContext(ctx)
	defer close(r.done)
	defer close(r.progress)

	if err := ctx.Err(); err != nil {
		return r.finish(ctx, domain.RunStatusCancelled, err)
	}
	if err := r.runStore.UpdateRunStatus(ctx, r.run.ID, string(domain.RunStatusRunning), nil); err != nil {
		return domain.RunStatusFailed, err
	}

	for i, req := range r.requests {
		select {
		case <-ctx.Done():
			logger.Info().Int("processed", i).Msg("rating run stopped")
			return r.finish(ctx, domain.RunStatusCancelled, ctx.Err())
		default:
		}

		table, err := r.rater.Aggregate(ctx, req)
		if errors.Is(err, context.Canceled) {
			return r.finish(ctx, domain.RunStatusCancelled, err)
		}
		if err != nil {
			logger.Error().Err(err).Str("attribute", req.Attribute).Msg("failed to rate attribute")
			return r.finish(ctx, domain.RunStatusFailed, fmt.Errorf("rate %s: %w", req.Attribute, err))
		}
		if table.NoQualifyingData {
			logger.Warn().Str("attribute", req.Attribute).Msg("no qualifying data, storing placeholder rows")
		}

		if err := r.store(ctx, table, i+1); err != nil {
			logger.Error().Err(err).Str("attribute", req.Attribute).Msg("failed to store rating table")
			return r.finish(ctx, domain.RunStatusFailed, err)
		}

		r.progress <- RunnerProgress{
			Attribute:        table.Attribute,
			Processed:        i + 1,
			Total:            len(r.requests),
			MapUnits:         len(table.Rows),
			NoQualifyingData: table.NoQualifyingData,
		}
	}

	return r.finish(ctx, domain.RunStatusFinished, nil)
}

func (r *Runner) store(ctx context.Context, table *domain.RatingTable, processed int) error {
	return duckdb.InTransaction(ctx, r.db, func(ctx context.Context) error {
		if err := r.ratingStore.Add(ctx, adapters.MapRatingTableToStoreResults(r.run.ID, table)); err != nil {
			return err
		}
		return r.runStore.ProgressRun(ctx, r.run.ID, processed)
	})
}

// finish records the final status even when ctx is already cancelled.
func (r *Runner) finish(ctx context.Context, status domain.RunStatus, cause error) (domain.RunStatus, error) {
	var msg *string
	if cause != nil {
		m := cause.Error()
		msg = &m
	}
	if err := r.runStore.UpdateRunStatus(context.WithoutCancel(ctx), r.run.ID, string(status), msg); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("status", string(status)).Msg("failed to update run status")
		return status, errors.Join(cause, err)
	}
	zerolog.Ctx(ctx).Info().Str("status", string(status)).Msg("rating run ended")
	return status, cause
}
