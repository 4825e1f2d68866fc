package ratings

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/de-tools/soil-atlas/pkg/adapters"
	"github.com/de-tools/soil-atlas/pkg/models/api"
	"github.com/de-tools/soil-atlas/pkg/models/domain"
	"github.com/de-tools/soil-atlas/pkg/services/attribute"
	"github.com/de-tools/soil-atlas/pkg/services/batch"
	"github.com/de-tools/soil-atlas/pkg/services/rating"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/runs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxBody bounds request bodies; a run request is a short list of options.
const maxBody = 1 << 20

type Handler struct {
	rater rating.Service
	batch batch.Controller
}

func NewHandler(rater rating.Service, ctrl batch.Controller) *Handler {
	return &Handler{
		rater: rater,
		batch: ctrl,
	}
}

func (h *Handler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	list, err := h.rater.Attributes(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response := make([]api.Attribute, 0, len(list))
	for _, desc := range list {
		response = append(response, adapters.MapDomainAttributeToAPI(desc))
	}
	h.respond(w, r, http.StatusOK, response)
}

func (h *Handler) GetAttribute(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fuzzy, err := parseBool(query.Get("fuzzy"))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: fuzzy: %w", domain.ErrInvalidRequest, err))
		return
	}

	desc, err := h.rater.ResolveAttribute(r.Context(), chi.URLParam(r, "name"), attribute.Constraints{
		Primary:   query.Get("primary"),
		Secondary: query.Get("secondary"),
		Fuzzy:     fuzzy,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, adapters.MapDomainAttributeToAPI(*desc))
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	var req domain.AggregationRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	table, err := h.rater.Aggregate(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, table)
}

func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req api.RunRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	run, err := h.batch.Start(r.Context(), req.Requests)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("run", run.ID).Strs("attributes", run.Attributes).Msg("run started")
	h.respond(w, r, http.StatusAccepted, adapters.MapDomainRunToAPI(run))
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	var statuses []domain.RunStatus
	for _, s := range r.URL.Query()["status"] {
		statuses = append(statuses, domain.RunStatus(s))
	}

	list, err := h.batch.List(r.Context(), statuses)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response := make([]api.Run, 0, len(list))
	for _, run := range list {
		response = append(response, adapters.MapDomainRunToAPI(run))
	}
	h.respond(w, r, http.StatusOK, response)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.batch.Get(r.Context(), chi.URLParam(r, "run"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, adapters.MapDomainRunToAPI(run))
}

func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run")
	if err := h.batch.Cancel(r.Context(), runID); err != nil {
		h.fail(w, r, err)
		return
	}
	run, err := h.batch.Get(r.Context(), runID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, adapters.MapDomainRunToAPI(run))
}

func (h *Handler) GetRunRatings(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run")
	attr := r.URL.Query().Get("attribute")
	if attr == "" {
		h.fail(w, r, fmt.Errorf("%w: attribute query parameter is required", domain.ErrInvalidRequest))
		return
	}

	rows, err := h.batch.Results(r.Context(), runID, attr)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, api.RunRatings{RunID: runID, Attribute: attr, Rows: rows})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Msg("failed to encode response")
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	event := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")
	h.respond(w, r, status, api.Error{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownAttribute), errors.Is(err, runs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAmbiguousConstraint), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, batch.ErrRunNotActive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptyDomain):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %w", domain.ErrInvalidRequest, err)
	}
	return nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}
