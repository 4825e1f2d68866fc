package source

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLSource_Query_ShouldStreamRowsInColumnOrder(t *testing.T) {
	// Given: a sqlmock DB with two component rows
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"cokey", "mukey", "comppct_r"}
	rows := sqlmock.NewRows(cols).
		AddRow("c1", "m1", 60.0).
		AddRow([]byte("c2"), "m1", nil)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT cokey, mukey, comppct_r FROM component WHERE mukey = ? AND majcompflag = ? ORDER BY mukey, cokey`)).
		WithArgs("m1", "Yes").
		WillReturnRows(rows)

	src, err := NewSQLSource(db)
	require.NoError(t, err)

	// When
	got, err := Collect(context.Background(), src, Query{
		Table:   "component",
		Columns: cols,
		Where:   []Condition{{Column: "mukey", Value: "m1"}, {Column: "majcompflag", Value: "Yes"}},
		OrderBy: []string{"mukey", "cokey"},
	})

	// Then
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []interface{}{"c1", "m1", 60.0}, got[0])
	assert.Equal(t, []interface{}{"c2", "m1", nil}, got[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSource_Query_ShouldRejectUnsafeIdentifiers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	src, err := NewSQLSource(db)
	require.NoError(t, err)

	_, err = src.Query(context.Background(), Query{Table: "component; DROP TABLE x", Columns: []string{"cokey"}})
	assert.Error(t, err)

	_, err = src.Query(context.Background(), Query{Table: "component", Columns: []string{"cokey", "1=1"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLSource_NilDB(t *testing.T) {
	src, err := NewSQLSource(nil)
	assert.Error(t, err)
	assert.Nil(t, src)
}

func TestBuildSelect_NullCondition(t *testing.T) {
	query, args := BuildSelect(Query{
		Table:   "cointerp",
		Columns: []string{"cokey"},
		Where:   []Condition{{Column: "ruledepth", Value: 0}, {Column: "interphrc", Value: nil}},
	})
	assert.Equal(t, "SELECT cokey FROM cointerp WHERE ruledepth = ? AND interphrc IS NULL", query)
	assert.Equal(t, []interface{}{0}, args)
}

func TestMemorySource_Query(t *testing.T) {
	m := NewMemorySource()
	require.NoError(t, m.AddTable("chorizon",
		[]string{"chkey", "cokey", "hzdept_r", "claytotal_r"},
		[]interface{}{"h2", "c1", 10.0, 30.0},
		[]interface{}{"h1", "c1", 0.0, 20.0},
		[]interface{}{"h3", "c2", 0.0, nil},
	))

	t.Run("filter and order", func(t *testing.T) {
		got, err := Collect(context.Background(), m, Query{
			Table:   "CHORIZON",
			Columns: []string{"chkey", "claytotal_r"},
			Where:   []Condition{{Column: "cokey", Value: "c1"}},
			OrderBy: []string{"hzdept_r"},
		})
		require.NoError(t, err)
		assert.Equal(t, [][]interface{}{{"h1", 20.0}, {"h2", 30.0}}, got)
	})

	t.Run("numeric filter matches across int and float", func(t *testing.T) {
		got, err := Collect(context.Background(), m, Query{
			Table:   "chorizon",
			Columns: []string{"chkey"},
			Where:   []Condition{{Column: "hzdept_r", Value: 10}},
		})
		require.NoError(t, err)
		assert.Equal(t, [][]interface{}{{"h2"}}, got)
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := m.Query(context.Background(), Query{Table: "comonth", Columns: []string{"cokey"}})
		assert.Error(t, err)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := m.Query(context.Background(), Query{Table: "chorizon", Columns: []string{"sandtotal_r"}})
		assert.Error(t, err)
	})

	t.Run("cancelled context stops the cursor", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		rows, err := m.Query(ctx, Query{Table: "chorizon", Columns: []string{"chkey"}})
		require.NoError(t, err)
		cancel()
		assert.False(t, rows.Next())
		assert.ErrorIs(t, rows.Err(), context.Canceled)
	})
}

func TestMemorySource_AddTable_RowWidthMismatch(t *testing.T) {
	m := NewMemorySource()
	err := m.AddTable("mapunit", []string{"mukey", "muname"}, []interface{}{"m1"})
	assert.Error(t, err)
}
