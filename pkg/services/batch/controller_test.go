package batch

import (
	"context"
	"testing"
	"time"

	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/services/rating"
	"github.com/de-tools/soil-atlas/pkg/store/catalog"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/ratings"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/runs"
	"github.com/de-tools/soil-atlas/pkg/store/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctrl     *DefaultController
	runStore runs.Store
}

func newSurvey(t *testing.T) *source.MemorySource {
	t.Helper()
	src := source.NewMemorySource()
	require.NoError(t, src.AddTable("mapunit",
		[]string{"mukey", "areasymbol", "musym", "muname"},
		[]interface{}{"1", "IA169", "138B", "Clarion loam"},
		[]interface{}{"2", "IA169", "107", "Webster clay loam"},
	))
	require.NoError(t, src.AddTable("component",
		[]string{"cokey", "mukey", "compname", "comppct_r", "majcompflag", "compkind", "hydgrp", "hydricrating"},
		[]interface{}{"11", "1", "Clarion", 85.0, "Yes", "Series", "B", "No"},
		[]interface{}{"12", "1", "Coland", 15.0, "No", "Series", "B/D", "Yes"},
		[]interface{}{"21", "2", "Webster", 90.0, "Yes", "Series", "C/D", "Yes"},
	))
	return src
}

func setupFixture(t *testing.T) *fixture {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	cat, err := catalog.Default()
	require.NoError(t, err)
	rater, err := rating.NewService(newSurvey(t), cat, rating.Settings{Workers: 2})
	require.NoError(t, err)
	runStore, err := runs.NewStore(db)
	require.NoError(t, err)
	ratingStore, err := ratings.NewStore(db)
	require.NoError(t, err)

	return &fixture{
		ctrl:     NewController(db, rater, runStore, ratingStore),
		runStore: runStore,
	}
}

func TestController_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("rates and stores every request", func(t *testing.T) {
		f := setupFixture(t)
		var seen []RunnerProgress

		run, err := f.ctrl.Execute(ctx, []domain.AggregationRequest{
			{Attribute: "Hydrologic Soil Group"},
			{Attribute: "Hydric Condition", Target: "Yes"},
		}, func(p RunnerProgress) { seen = append(seen, p) })
		require.NoError(t, err)

		assert.Equal(t, domain.RunStatusFinished, run.Status)
		assert.Equal(t, 2, run.Processed)
		assert.Equal(t, []string{"Hydrologic Soil Group", "Hydric Condition"}, run.Attributes)
		require.Len(t, seen, 2)
		assert.Equal(t, "Hydric Condition", seen[1].Attribute)
		assert.Equal(t, 2, seen[1].Total)

		rows, err := f.ctrl.Results(ctx, run.ID, "Hydrologic Soil Group")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, domain.Class("B"), rows[0].Rating)
		assert.Equal(t, 85.0, *rows[0].ComponentPercent)

		rows, err = f.ctrl.Results(ctx, run.ID, "Hydric Condition")
		require.NoError(t, err)
		assert.Equal(t, domain.Numeric(15), rows[0].Rating)
		assert.Equal(t, domain.Numeric(90), rows[1].Rating)
	})

	t.Run("continues past attributes without qualifying data", func(t *testing.T) {
		f := setupFixture(t)
		var seen []RunnerProgress

		run, err := f.ctrl.Execute(ctx, []domain.AggregationRequest{
			{Attribute: "Hydrologic Soil Group", Cutoff: 100},
			{Attribute: "Hydrologic Soil Group", MajorOnly: true},
		}, func(p RunnerProgress) { seen = append(seen, p) })
		require.NoError(t, err)

		assert.Equal(t, domain.RunStatusFinished, run.Status)
		require.Len(t, seen, 2)
		assert.True(t, seen[0].NoQualifyingData)
		assert.False(t, seen[1].NoQualifyingData)
	})

	t.Run("fails on a resolution error and keeps earlier tables", func(t *testing.T) {
		f := setupFixture(t)

		run, err := f.ctrl.Execute(ctx, []domain.AggregationRequest{
			{Attribute: "Hydrologic Soil Group"},
			{Attribute: "Bulk Density"},
		}, nil)
		assert.ErrorIs(t, err, domain.ErrUnknownAttribute)

		require.NotNil(t, run)
		assert.Equal(t, domain.RunStatusFailed, run.Status)
		assert.Equal(t, 1, run.Processed)
		require.NotNil(t, run.Error)
		assert.Contains(t, *run.Error, "Bulk Density")

		rows, err := f.ctrl.Results(ctx, run.ID, "Hydrologic Soil Group")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("cancelled before the first request", func(t *testing.T) {
		f := setupFixture(t)
		created, err := f.runStore.CreateRun(ctx, []string{"Hydrologic Soil Group"})
		require.NoError(t, err)
		runner := NewRunner(created, []domain.AggregationRequest{{Attribute: "Hydrologic Soil Group"}},
			f.ctrl.db, f.runStore, f.ctrl.ratingStore, f.ctrl.rater)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		status, err := runner.Run(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, domain.RunStatusCancelled, status)

		run, err := f.ctrl.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusCancelled, run.Status)
		assert.Equal(t, 0, run.Processed)
		_, open := <-runner.Progress()
		assert.False(t, open)
	})

	t.Run("rejects invalid requests before creating a run", func(t *testing.T) {
		f := setupFixture(t)

		_, err := f.ctrl.Execute(ctx, nil, nil)
		assert.Error(t, err)
		_, err = f.ctrl.Execute(ctx, []domain.AggregationRequest{{Attribute: "Slope Gradient", Cutoff: -1}}, nil)
		assert.ErrorContains(t, err, "invalid aggregation request 0")

		list, err := f.ctrl.List(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestController_Start(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	run, err := f.ctrl.Start(ctx, []domain.AggregationRequest{{Attribute: "Hydrologic Soil Group"}})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPending, run.Status)

	require.Eventually(t, func() bool {
		got, err := f.ctrl.Get(ctx, run.ID)
		return err == nil && got.Done()
	}, 5*time.Second, 10*time.Millisecond)

	got, err := f.ctrl.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFinished, got.Status)

	finished, err := f.ctrl.List(ctx, []domain.RunStatus{domain.RunStatusFinished})
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, run.ID, finished[0].ID)
}

func TestController_CancelUnknownRun(t *testing.T) {
	f := setupFixture(t)
	assert.ErrorIs(t, f.ctrl.Cancel(context.Background(), "absent"), ErrRunNotActive)
}

func TestController_Init(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	// Given a run a previous process left running
	stale, err := f.runStore.CreateRun(ctx, []string{"Drainage Class"})
	require.NoError(t, err)
	require.NoError(t, f.runStore.UpdateRunStatus(ctx, stale.ID, string(domain.RunStatusRunning), nil))

	// When
	require.NoError(t, f.ctrl.Init(ctx))

	// Then
	got, err := f.ctrl.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "interrupted by restart", *got.Error)
}

func TestController_ResultsOfUnknownRun(t *testing.T) {
	f := setupFixture(t)
	_, err := f.ctrl.Results(context.Background(), "absent", "Hydrologic Soil Group")
	assert.ErrorIs(t, err, runs.ErrNotFound)
}
