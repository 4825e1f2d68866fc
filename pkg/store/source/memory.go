package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemorySource is an in-memory RowSource. It backs fixtures and tests and
// lets callers feed already materialized survey extracts to the engine.
type MemorySource struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

type memTable struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

func NewMemorySource() *MemorySource {
	return &MemorySource{tables: make(map[string]*memTable)}
}

// AddTable registers (or replaces) a table. Every row must have one value per column.
func (m *MemorySource) AddTable(name string, columns []string, rows ...[]interface{}) error {
	t := &memTable{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		t.index[strings.ToLower(c)] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return fmt.Errorf("table %s row %d has %d values, want %d", name, i, len(r), len(columns))
		}
		t.rows = append(t.rows, append([]interface{}(nil), r...))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[strings.ToLower(name)] = t
	return nil
}

// Append adds rows to an existing table.
func (m *MemorySource) Append(name string, rows ...[]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("table %s not found", name)
	}
	for _, r := range rows {
		if len(r) != len(t.columns) {
			return fmt.Errorf("table %s expects %d values, got %d", name, len(t.columns), len(r))
		}
		t.rows = append(t.rows, append([]interface{}(nil), r...))
	}
	return nil
}

func (m *MemorySource) Query(ctx context.Context, q Query) (Rows, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[strings.ToLower(q.Table)]
	if !ok {
		return nil, fmt.Errorf("table %s not found", q.Table)
	}
	proj, err := t.positions(q.Columns)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	filterCols := make([]string, len(q.Where))
	for i, c := range q.Where {
		filterCols[i] = c.Column
	}
	filterPos, err := t.positions(filterCols)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	orderPos, err := t.positions(q.OrderBy)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}

	var matched [][]interface{}
	for _, r := range t.rows {
		keep := true
		for i, c := range q.Where {
			if !looseEqual(r[filterPos[i]], c.Value) {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, r)
		}
	}
	if len(orderPos) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, p := range orderPos {
				if c := compareLoose(matched[i][p], matched[j][p]); c != 0 {
					return c < 0
				}
			}
			return false
		})
	}

	out := make([][]interface{}, len(matched))
	for i, r := range matched {
		row := make([]interface{}, len(proj))
		for j, p := range proj {
			row[j] = r[p]
		}
		out[i] = row
	}
	return &memRows{ctx: ctx, rows: out, pos: -1}, nil
}

func (t *memTable) positions(cols []string) ([]int, error) {
	out := make([]int, len(cols))
	for i, c := range cols {
		p, ok := t.index[strings.ToLower(c)]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		out[i] = p
	}
	return out, nil
}

type memRows struct {
	ctx  context.Context
	rows [][]interface{}
	pos  int
	err  error
}

func (r *memRows) Next() bool {
	if r.err != nil {
		return false
	}
	if err := r.ctx.Err(); err != nil {
		r.err = err
		return false
	}
	r.pos++
	return r.pos < len(r.rows)
}

func (r *memRows) Values() []interface{} {
	return append([]interface{}(nil), r.rows[r.pos]...)
}

func (r *memRows) Err() error   { return r.err }
func (r *memRows) Close() error { return nil }

func looseEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return compareLoose(a, b) == 0
}

// compareLoose orders nil first, then numbers numerically, then everything
// else by its string form.
func compareLoose(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, aok := asFloat(a)
	fb, bok := asFloat(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
