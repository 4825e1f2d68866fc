// Package source defines the pull-based row source the rating engine reads the
// soil survey tables through, with database/sql and in-memory implementations.
package source

import (
	"context"
	"fmt"
	"regexp"
)

// Condition is an equality predicate on a single column.
type Condition struct {
	Column string
	Value  interface{}
}

// Query selects columns from a table, optionally filtered and ordered.
type Query struct {
	Table   string
	Columns []string
	Where   []Condition
	OrderBy []string
}

// Rows is a finite, single-pass cursor. A new Query call restarts the read.
type Rows interface {
	Next() bool
	// Values returns the current row in Query.Columns order. The slice is
	// owned by the caller.
	Values() []interface{}
	Err() error
	Close() error
}

type RowSource interface {
	Query(ctx context.Context, q Query) (Rows, error)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate rejects queries whose identifiers could not be safely inlined.
func (q Query) Validate() error {
	if !identifier.MatchString(q.Table) {
		return fmt.Errorf("invalid table name %q", q.Table)
	}
	if len(q.Columns) == 0 {
		return fmt.Errorf("query on %s selects no columns", q.Table)
	}
	for _, c := range q.Columns {
		if !identifier.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
	}
	for _, c := range q.Where {
		if !identifier.MatchString(c.Column) {
			return fmt.Errorf("invalid filter column %q", c.Column)
		}
	}
	for _, c := range q.OrderBy {
		if !identifier.MatchString(c) {
			return fmt.Errorf("invalid order column %q", c)
		}
	}
	return nil
}

// Collect drains a Rows cursor into memory. It is meant for small lookup
// tables; the engine streams the large ones.
func Collect(ctx context.Context, src RowSource, q Query) ([][]interface{}, error) {
	rows, err := src.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]interface{}
	for rows.Next() {
		out = append(out, rows.Values())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
