package ratings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/soil-atlas/pkg/models/store"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb"
	"github.com/rs/zerolog"
)

// Store persists rating tables one map unit row at a time. Writing the same
// run, attribute and map unit again replaces the earlier row.
type Store interface {
	Add(ctx context.Context, records []store.RatingResult) error
	GetRun(ctx context.Context, runID string) ([]store.RatingResult, error)
	GetAttribute(ctx context.Context, runID, attribute string) ([]store.RatingResult, error)
}

type ratingStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &ratingStore{
		db: db,
	}, nil
}

func (s *ratingStore) Add(ctx context.Context, records []store.RatingResult) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT OR REPLACE INTO rating_results (
			run_id, attribute, mukey, areasymbol, rating_kind,
			rating_num, rating_class, comppct
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?
		)`

	stmt, err := duckdb.Prepare(ctx, s.db, query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		_, err = stmt.ExecContext(ctx,
			record.RunID,
			record.Attribute,
			record.MapUnitID,
			record.AreaSymbol,
			record.Kind,
			nullFloat(record.NumericValue),
			nullString(record.ClassValue),
			nullFloat(record.ComponentPercent),
		)
		if err != nil {
			return fmt.Errorf("insert rating of map unit %s: %w", record.MapUnitID, err)
		}
	}

	return nil
}

const selectResults = `
	SELECT run_id, attribute, mukey, areasymbol, rating_kind, rating_num, rating_class, comppct
	FROM rating_results
`

// integer map unit keys sort numerically, the rest after them as text
const orderResults = `
	ORDER BY attribute, TRY_CAST(mukey AS UBIGINT) NULLS LAST, mukey
`

func (s *ratingStore) GetRun(ctx context.Context, runID string) ([]store.RatingResult, error) {
	rows, err := s.db.QueryContext(ctx, selectResults+"WHERE run_id = ?"+orderResults, runID)
	if err != nil {
		return nil, fmt.Errorf("query run ratings: %w", err)
	}
	defer closeRows(ctx, rows)
	return scanResultRows(rows)
}

func (s *ratingStore) GetAttribute(ctx context.Context, runID, attribute string) ([]store.RatingResult, error) {
	rows, err := s.db.QueryContext(ctx, selectResults+"WHERE run_id = ? AND attribute = ?"+orderResults, runID, attribute)
	if err != nil {
		return nil, fmt.Errorf("query attribute ratings: %w", err)
	}
	defer closeRows(ctx, rows)
	return scanResultRows(rows)
}

func scanResultRows(rows *sql.Rows) ([]store.RatingResult, error) {
	records := make([]store.RatingResult, 0)
	for rows.Next() {
		var (
			r          store.RatingResult
			areaSymbol sql.NullString
			num, pct   sql.NullFloat64
			class      sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.Attribute, &r.MapUnitID, &areaSymbol, &r.Kind, &num, &class, &pct); err != nil {
			return nil, err
		}
		r.AreaSymbol = areaSymbol.String
		if num.Valid {
			v := num.Float64
			r.NumericValue = &v
		}
		if class.Valid {
			v := class.String
			r.ClassValue = &v
		}
		if pct.Valid {
			v := pct.Float64
			r.ComponentPercent = &v
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to close rating rows")
	}
}
