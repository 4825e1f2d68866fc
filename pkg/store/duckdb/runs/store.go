package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/soil-atlas/pkg/models/store"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("run not found")

type Store interface {
	ListRuns(ctx context.Context, statuses []string) ([]*store.Run, error)
	GetRun(ctx context.Context, runID string) (*store.Run, error)
	CreateRun(ctx context.Context, attributes []string) (*store.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status string, error *string) error
	ProgressRun(ctx context.Context, runID string, processed int) error
}

type defaultStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

const selectRuns = `
	SELECT id, attributes, status, processed, error, created_at, updated_at
	FROM rating_runs
`

func (s *defaultStore) ListRuns(ctx context.Context, statuses []string) ([]*store.Run, error) {
	query := selectRuns
	args := make([]interface{}, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, st := range statuses {
			placeholders = append(placeholders, "?")
			args = append(args, st)
		}
		query += fmt.Sprintf("WHERE status IN (%s)\n", strings.Join(placeholders, ","))
	}
	query += "ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close run rows")
		}
	}()

	out := make([]*store.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *defaultStore) GetRun(ctx context.Context, runID string) (*store.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+"WHERE id = ?", runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return run, err
}

func (s *defaultStore) CreateRun(ctx context.Context, attributes []string) (*store.Run, error) {
	if attributes == nil {
		attributes = []string{}
	}
	encoded, err := json.Marshal(attributes)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}

	now := s.now()
	run := &store.Run{
		ID:         uuid.NewString(),
		Attributes: attributes,
		Status:     "pending",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err = duckdb.Exec(ctx, s.db,
		`INSERT INTO rating_runs (id, attributes, status, processed, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		run.ID, string(encoded), run.Status, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

func (s *defaultStore) UpdateRunStatus(ctx context.Context, runID string, status string, error *string) error {
	var msg sql.NullString
	if error != nil {
		msg = sql.NullString{String: *error, Valid: true}
	}
	res, err := duckdb.Exec(ctx, s.db,
		`UPDATE rating_runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, msg, s.now(), runID,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return expectOne(res, runID)
}

func (s *defaultStore) ProgressRun(ctx context.Context, runID string, processed int) error {
	res, err := duckdb.Exec(ctx, s.db,
		`UPDATE rating_runs SET processed = ?, updated_at = ? WHERE id = ?`,
		processed, s.now(), runID,
	)
	if err != nil {
		return fmt.Errorf("update run progress: %w", err)
	}
	return expectOne(res, runID)
}

func expectOne(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*store.Run, error) {
	var (
		run        store.Run
		attributes sql.NullString
		msg        sql.NullString
	)
	if err := row.Scan(&run.ID, &attributes, &run.Status, &run.Processed, &msg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	run.Attributes = []string{}
	if attributes.Valid && attributes.String != "" {
		if err := json.Unmarshal([]byte(attributes.String), &run.Attributes); err != nil {
			return nil, fmt.Errorf("run %s attributes: %w", run.ID, err)
		}
	}
	if msg.Valid {
		m := msg.String
		run.Error = &m
	}
	return &run, nil
}
