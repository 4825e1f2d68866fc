package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/soil-atlas/pkg/models/api"
	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/services/attribute"
	"github.com/de-tools/soil-atlas/pkg/services/batch"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/runs"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRater struct {
	mock.Mock
}

func (m *mockRater) ResolveAttribute(ctx context.Context, name string, c attribute.Constraints) (*domain.AttributeDescriptor, error) {
	args := m.Called(ctx, name, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AttributeDescriptor), args.Error(1)
}

func (m *mockRater) Aggregate(ctx context.Context, req domain.AggregationRequest) (*domain.RatingTable, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingTable), args.Error(1)
}

func (m *mockRater) Attributes(ctx context.Context) ([]domain.AttributeDescriptor, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.AttributeDescriptor), args.Error(1)
}

type mockController struct {
	mock.Mock
}

func (m *mockController) Start(ctx context.Context, requests []domain.AggregationRequest) (*domain.Run, error) {
	args := m.Called(ctx, requests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *mockController) Execute(
	ctx context.Context,
	requests []domain.AggregationRequest,
	progress func(batch.RunnerProgress),
) (*domain.Run, error) {
	args := m.Called(ctx, requests, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *mockController) Cancel(ctx context.Context, runID string) error {
	return m.Called(ctx, runID).Error(0)
}

func (m *mockController) Get(ctx context.Context, runID string) (*domain.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *mockController) List(ctx context.Context, statuses []domain.RunStatus) ([]*domain.Run, error) {
	args := m.Called(ctx, statuses)
	return args.Get(0).([]*domain.Run), args.Error(1)
}

func (m *mockController) Results(ctx context.Context, runID, attr string) ([]domain.RatingRow, error) {
	args := m.Called(ctx, runID, attr)
	return args.Get(0).([]domain.RatingRow), args.Error(1)
}

func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func hydrologic() *domain.AttributeDescriptor {
	return &domain.AttributeDescriptor{
		Name:     "Hydrologic Soil Group",
		Table:    "component",
		Column:   "hydgrp",
		DataType: domain.DataTypeClass,
		Level:    domain.LevelComponent,
		Method:   domain.MethodDominantCondition,
		TieBreak: domain.TieBreakHigher,
	}
}

func TestListAttributes(t *testing.T) {
	rater := new(mockRater)
	rater.On("Attributes", mock.Anything).Return([]domain.AttributeDescriptor{*hydrologic()}, nil)
	h := NewHandler(rater, new(mockController))

	rec := httptest.NewRecorder()
	h.ListAttributes(rec, httptest.NewRequest(http.MethodGet, "/attributes", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var response []api.Attribute
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, []api.Attribute{{
		Name:     "Hydrologic Soil Group",
		Table:    "component",
		Column:   "hydgrp",
		DataType: "class",
		Level:    "component",
		Method:   "dominant_condition",
		TieBreak: "higher",
	}}, response)
	rater.AssertExpectations(t)
}

func TestGetAttribute(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*mockRater)
		expectedStatus int
	}{
		{
			name:  "resolved with constraints",
			query: "?primary=ENG%20-%20Dwellings&fuzzy=true",
			setupMock: func(m *mockRater) {
				m.On("ResolveAttribute", mock.Anything, "Hydrologic Soil Group", attribute.Constraints{
					Primary: "ENG - Dwellings",
					Fuzzy:   true,
				}).Return(hydrologic(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unknown attribute",
			setupMock: func(m *mockRater) {
				m.On("ResolveAttribute", mock.Anything, "Hydrologic Soil Group", attribute.Constraints{}).
					Return(nil, fmt.Errorf("resolve attribute: %w", domain.ErrUnknownAttribute))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "missing constraint",
			setupMock: func(m *mockRater) {
				m.On("ResolveAttribute", mock.Anything, "Hydrologic Soil Group", attribute.Constraints{}).
					Return(nil, domain.NewRatingError(domain.ErrAmbiguousConstraint, "Hydrologic Soil Group", "primary"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad fuzzy flag",
			query:          "?fuzzy=maybe",
			setupMock:      func(m *mockRater) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rater := new(mockRater)
			tt.setupMock(rater)
			h := NewHandler(rater, new(mockController))

			req := withParams(httptest.NewRequest(http.MethodGet, "/attributes/x"+tt.query, nil), "name", "Hydrologic Soil Group")
			rec := httptest.NewRecorder()
			h.GetAttribute(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			rater.AssertExpectations(t)
		})
	}
}

func TestRate(t *testing.T) {
	t.Run("returns the rating table", func(t *testing.T) {
		// Given
		rater := new(mockRater)
		want := domain.AggregationRequest{Attribute: "Hydrologic Soil Group", Cutoff: 15}
		rater.On("Aggregate", mock.Anything, want).Return(&domain.RatingTable{
			Attribute: "Hydrologic Soil Group",
			Method:    domain.MethodDominantCondition,
			TieBreak:  domain.TieBreakHigher,
			Rows: []domain.RatingRow{
				{MapUnitID: "1", AreaSymbol: "IA169", Rating: domain.Class("B"), ComponentPercent: domain.Float64(85)},
				{MapUnitID: "3", AreaSymbol: "IA169", Rating: domain.Missing()},
			},
		}, nil)
		h := NewHandler(rater, new(mockController))

		// When
		body := `{"attribute": "Hydrologic Soil Group", "cutoff": 15}`
		rec := httptest.NewRecorder()
		h.Rate(rec, httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(body)))

		// Then
		assert.Equal(t, http.StatusOK, rec.Code)
		var response struct {
			Attribute string                   `json:"attribute"`
			Rows      []map[string]interface{} `json:"rows"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "Hydrologic Soil Group", response.Attribute)
		require.Len(t, response.Rows, 2)
		assert.Equal(t, "B", response.Rows[0]["rating"])
		assert.Equal(t, 85.0, response.Rows[0]["comppct"])
		assert.Nil(t, response.Rows[1]["rating"])
		rater.AssertExpectations(t)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		rater := new(mockRater)
		h := NewHandler(rater, new(mockController))

		rec := httptest.NewRecorder()
		h.Rate(rec, httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(`{"attr": "x"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rater.AssertNotCalled(t, "Aggregate", mock.Anything, mock.Anything)
	})

	t.Run("maps engine errors", func(t *testing.T) {
		rater := new(mockRater)
		rater.On("Aggregate", mock.Anything, mock.Anything).
			Return(nil, domain.NewRatingError(domain.ErrEmptyDomain, "Drainage Class", "no legal values"))
		h := NewHandler(rater, new(mockController))

		rec := httptest.NewRecorder()
		h.Rate(rec, httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(`{"attribute": "Drainage Class"}`)))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var response api.Error
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Contains(t, response.Error, "Drainage Class")
	})
}

func TestRuns(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := &domain.Run{
		ID:         "r1",
		Attributes: []string{"Hydrologic Soil Group", "Hydric Condition"},
		Status:     domain.RunStatusPending,
		CreatedAt:  created,
		UpdatedAt:  created,
	}

	t.Run("start", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("Start", mock.Anything, []domain.AggregationRequest{
			{Attribute: "Hydrologic Soil Group"},
			{Attribute: "Hydric Condition", Target: "Yes"},
		}).Return(run, nil)
		h := NewHandler(new(mockRater), ctrl)

		body := `{"requests": [{"attribute": "Hydrologic Soil Group"}, {"attribute": "Hydric Condition", "target": "Yes"}]}`
		rec := httptest.NewRecorder()
		h.StartRun(rec, httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body)))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		var response api.Run
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "r1", response.ID)
		assert.Equal(t, "pending", response.Status)
		assert.Equal(t, 2, response.Total)
		ctrl.AssertExpectations(t)
	})

	t.Run("start with an invalid request", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("Start", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w 0: attribute is required", domain.ErrInvalidRequest))
		h := NewHandler(new(mockRater), ctrl)

		rec := httptest.NewRecorder()
		h.StartRun(rec, httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"requests": [{}]}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list by status", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("List", mock.Anything, []domain.RunStatus{domain.RunStatusRunning, domain.RunStatusPending}).
			Return([]*domain.Run{run}, nil)
		h := NewHandler(new(mockRater), ctrl)

		rec := httptest.NewRecorder()
		h.ListRuns(rec, httptest.NewRequest(http.MethodGet, "/runs?status=running&status=pending", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response []api.Run
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Len(t, response, 1)
		assert.Equal(t, created, response[0].CreatedAt)
		ctrl.AssertExpectations(t)
	})

	t.Run("get unknown run", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("Get", mock.Anything, "absent").Return(nil, fmt.Errorf("get run: %w", runs.ErrNotFound))
		h := NewHandler(new(mockRater), ctrl)

		rec := httptest.NewRecorder()
		h.GetRun(rec, withParams(httptest.NewRequest(http.MethodGet, "/runs/absent", nil), "run", "absent"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cancel", func(t *testing.T) {
		msg := "context canceled"
		cancelled := *run
		cancelled.Status = domain.RunStatusCancelled
		cancelled.Error = &msg

		ctrl := new(mockController)
		ctrl.On("Cancel", mock.Anything, "r1").Return(nil)
		ctrl.On("Get", mock.Anything, "r1").Return(&cancelled, nil)
		h := NewHandler(new(mockRater), ctrl)

		rec := httptest.NewRecorder()
		h.CancelRun(rec, withParams(httptest.NewRequest(http.MethodDelete, "/runs/r1", nil), "run", "r1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response api.Run
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "cancelled", response.Status)
		assert.Equal(t, msg, response.Error)
	})

	t.Run("cancel a run that is not active", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("Cancel", mock.Anything, "r1").Return(fmt.Errorf("%w: r1", batch.ErrRunNotActive))
		h := NewHandler(new(mockRater), ctrl)

		rec := httptest.NewRecorder()
		h.CancelRun(rec, withParams(httptest.NewRequest(http.MethodDelete, "/runs/r1", nil), "run", "r1"))

		assert.Equal(t, http.StatusConflict, rec.Code)
		ctrl.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestGetRunRatings(t *testing.T) {
	t.Run("rows of one attribute", func(t *testing.T) {
		ctrl := new(mockController)
		ctrl.On("Results", mock.Anything, "r1", "Hydric Condition").Return([]domain.RatingRow{
			{MapUnitID: "1", AreaSymbol: "IA169", Rating: domain.Numeric(15)},
		}, nil)
		h := NewHandler(new(mockRater), ctrl)

		req := httptest.NewRequest(http.MethodGet, "/runs/r1/ratings?attribute=Hydric%20Condition", nil)
		rec := httptest.NewRecorder()
		h.GetRunRatings(rec, withParams(req, "run", "r1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response struct {
			RunID     string                   `json:"run_id"`
			Attribute string                   `json:"attribute"`
			Rows      []map[string]interface{} `json:"rows"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "r1", response.RunID)
		require.Len(t, response.Rows, 1)
		assert.Equal(t, 15.0, response.Rows[0]["rating"])
	})

	t.Run("attribute is required", func(t *testing.T) {
		ctrl := new(mockController)
		h := NewHandler(new(mockRater), ctrl)

		rec := httptest.NewRecorder()
		h.GetRunRatings(rec, withParams(httptest.NewRequest(http.MethodGet, "/runs/r1/ratings", nil), "run", "r1"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		ctrl.AssertNotCalled(t, "Results", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusOf(fmt.Errorf("query failed")))
	assert.Equal(t, http.StatusNotFound, statusOf(fmt.Errorf("results: %w", runs.ErrNotFound)))
}
