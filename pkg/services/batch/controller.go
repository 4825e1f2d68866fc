// Package batch rates lists of attributes as persisted runs.
package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/de-tools/soil-atlas/pkg/adapters"
	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/models/store"
	"github.com/de-tools/soil-atlas/pkg/services/rating"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/ratings"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/runs"
	"github.com/rs/zerolog"
)

// ErrRunNotActive is returned when cancelling a run this process is not executing.
var ErrRunNotActive = errors.New("run not active")

type Controller interface {
	// Start launches a run in the background and returns it as created.
	Start(ctx context.Context, requests []domain.AggregationRequest) (*domain.Run, error)
	// Execute rates the requests before returning the finished run.
	Execute(ctx context.Context, requests []domain.AggregationRequest, progress func(RunnerProgress)) (*domain.Run, error)
	Cancel(ctx context.Context, runID string) error
	Get(ctx context.Context, runID string) (*domain.Run, error)
	List(ctx context.Context, statuses []domain.RunStatus) ([]*domain.Run, error)
	// Results returns the stored rows of one attribute of a run.
	Results(ctx context.Context, runID, attribute string) ([]domain.RatingRow, error)
}

type runDescriptor struct {
	cancelFunc context.CancelFunc
	run        *store.Run
	runner     *Runner
}

type DefaultController struct {
	db          *sql.DB
	runStore    runs.Store
	ratingStore ratings.Store
	rater       rating.Service

	mu   sync.Mutex
	runs map[string]runDescriptor
}

func NewController(
	db *sql.DB,
	rater rating.Service,
	runStore runs.Store,
	ratingStore ratings.Store,
) *DefaultController {
	return &DefaultController{
		db:          db,
		runStore:    runStore,
		ratingStore: ratingStore,
		rater:       rater,
		runs:        make(map[string]runDescriptor),
	}
}

// Init marks runs left pending or running by a previous process as failed.
func (ctrl *DefaultController) Init(ctx context.Context) error {
	stale, err := ctrl.runStore.ListRuns(ctx, []string{string(domain.RunStatusPending), string(domain.RunStatusRunning)})
	if err != nil {
		return err
	}

	msg := "interrupted by restart"
	for _, r := range stale {
		if err := ctrl.runStore.UpdateRunStatus(ctx, r.ID, string(domain.RunStatusFailed), &msg); err != nil {
			return err
		}
		zerolog.Ctx(ctx).Warn().Str("run", r.ID).Msg("marked interrupted run as failed")
	}
	return nil
}

func (ctrl *DefaultController) Start(ctx context.Context, requests []domain.AggregationRequest) (*domain.Run, error) {
	run, err := ctrl.create(ctx, requests)
	if err != nil {
		return nil, err
	}

	// the run outlives the caller's request but keeps its logger
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runner := NewRunner(run, requests, ctrl.db, ctrl.runStore, ctrl.ratingStore, ctrl.rater)

	ctrl.mu.Lock()
	ctrl.runs[run.ID] = runDescriptor{
		cancelFunc: cancel,
		run:        run,
		runner:     runner,
	}
	ctrl.mu.Unlock()

	go func() {
		defer ctrl.forget(run.ID)
		defer cancel()
		_, _ = runner.Run(runCtx)
	}()
	go drain(runner.Progress())

	return adapters.MapStoreRunToDomain(run), nil
}

func (ctrl *DefaultController) Execute(
	ctx context.Context,
	requests []domain.AggregationRequest,
	progress func(RunnerProgress),
) (*domain.Run, error) {
	run, err := ctrl.create(ctx, requests)
	if err != nil {
		return nil, err
	}
	runner := NewRunner(run, requests, ctrl.db, ctrl.runStore, ctrl.ratingStore, ctrl.rater)

	reported := make(chan struct{})
	go func() {
		defer close(reported)
		for p := range runner.Progress() {
			if progress != nil {
				progress(p)
			}
		}
	}()

	_, runErr := runner.Run(ctx)
	<-reported

	final, err := ctrl.Get(context.WithoutCancel(ctx), run.ID)
	if err != nil {
		return nil, err
	}
	return final, runErr
}

func (ctrl *DefaultController) Cancel(_ context.Context, runID string) error {
	ctrl.mu.Lock()
	desc, ok := ctrl.runs[runID]
	ctrl.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	desc.cancelFunc()
	<-desc.runner.Done()
	return nil
}

func (ctrl *DefaultController) Get(ctx context.Context, runID string) (*domain.Run, error) {
	r, err := ctrl.runStore.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return adapters.MapStoreRunToDomain(r), nil
}

func (ctrl *DefaultController) List(ctx context.Context, statuses []domain.RunStatus) ([]*domain.Run, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	stored, err := ctrl.runStore.ListRuns(ctx, names)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Run, 0, len(stored))
	for _, r := range stored {
		out = append(out, adapters.MapStoreRunToDomain(r))
	}
	return out, nil
}

func (ctrl *DefaultController) Results(ctx context.Context, runID, attribute string) ([]domain.RatingRow, error) {
	if _, err := ctrl.runStore.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	stored, err := ctrl.ratingStore.GetAttribute(ctx, runID, attribute)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.RatingRow, 0, len(stored))
	for _, r := range stored {
		rows = append(rows, adapters.MapStoreResultToRatingRow(r))
	}
	return rows, nil
}

func (ctrl *DefaultController) create(ctx context.Context, requests []domain.AggregationRequest) (*store.Run, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: a run needs at least one request", domain.ErrInvalidRequest)
	}
	attributes := make([]string, 0, len(requests))
	for i := range requests {
		if err := requests[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w %d: %w", domain.ErrInvalidRequest, i, err)
		}
		attributes = append(attributes, requests[i].Attribute)
	}
	return ctrl.runStore.CreateRun(ctx, attributes)
}

func (ctrl *DefaultController) forget(runID string) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	delete(ctrl.runs, runID)
}

func drain(progress <-chan RunnerProgress) {
	for range progress {
	}
}
