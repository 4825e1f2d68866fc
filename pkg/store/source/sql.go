package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type sqlSource struct {
	db *sql.DB
}

// NewSQLSource wraps any database/sql connection whose driver accepts `?`
// placeholders (DuckDB, SQLite, Snowflake, Databricks SQL).
func NewSQLSource(db *sql.DB) (RowSource, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &sqlSource{db: db}, nil
}

func (s *sqlSource) Query(ctx context.Context, q Query) (Rows, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args := BuildSelect(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	return &sqlRows{rows: rows, width: len(q.Columns), table: q.Table, logger: zerolog.Ctx(ctx)}, nil
}

// BuildSelect renders a validated query as SQL with positional placeholders.
func BuildSelect(q Query) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.Table)

	args := make([]interface{}, 0, len(q.Where))
	if len(q.Where) > 0 {
		conds := make([]string, 0, len(q.Where))
		for _, c := range q.Where {
			if c.Value == nil {
				conds = append(conds, c.Column+" IS NULL")
				continue
			}
			conds = append(conds, c.Column+" = ?")
			args = append(args, c.Value)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.OrderBy, ", "))
	}
	return b.String(), args
}

type sqlRows struct {
	rows    *sql.Rows
	width   int
	table   string
	current []interface{}
	err     error
	logger  *zerolog.Logger
}

func (r *sqlRows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	values := make([]interface{}, r.width)
	ptrs := make([]interface{}, r.width)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = fmt.Errorf("scan %s: %w", r.table, err)
		return false
	}
	for i, v := range values {
		// drivers may reuse byte buffers between rows
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	r.current = values
	return true
}

func (r *sqlRows) Values() []interface{} { return r.current }

func (r *sqlRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *sqlRows) Close() error {
	err := r.rows.Close()
	if err != nil {
		r.logger.Warn().Err(err).Str("table", r.table).Msg("failed to close query rows")
	}
	return err
}
