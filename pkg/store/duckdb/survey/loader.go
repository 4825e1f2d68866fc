// Package survey loads soil survey extracts and attribute metadata into the
// embedded DuckDB database.
package survey

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/de-tools/soil-atlas/pkg/models/store"
	"github.com/de-tools/soil-atlas/pkg/store/catalog"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb"
	"github.com/rs/zerolog"
)

// Tables lists the survey tables a CSV extract may be imported into.
var Tables = []string{
	store.MapUnitTable,
	store.ComponentTable,
	store.HorizonTable,
	store.MonthTable,
	store.InterpretationTable,
	store.CropYieldTable,
	store.AttributeCatalogName,
	store.DomainCatalogName,
}

type Loader interface {
	// SeedCatalog replaces the attribute catalog tables with the given records.
	SeedCatalog(ctx context.Context, attributes []store.AttributeRecord, domains map[string][]store.DomainEntry) error
	// ImportCSV appends a CSV extract with a header row to a survey table,
	// matching columns by name. It returns the number of rows added.
	ImportCSV(ctx context.Context, table, path string) (int64, error)
}

type loader struct {
	db *sql.DB
}

func NewLoader(db *sql.DB) (Loader, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &loader{db: db}, nil
}

func (l *loader) SeedCatalog(ctx context.Context, attributes []store.AttributeRecord, domains map[string][]store.DomainEntry) error {
	err := duckdb.InTransaction(ctx, l.db, func(ctx context.Context) error {
		return l.seed(ctx, attributes, domains)
	})
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Int("attributes", len(attributes)).
		Int("domains", len(domains)).
		Msg("seeded attribute catalog")
	return nil
}

func (l *loader) seed(ctx context.Context, attributes []store.AttributeRecord, domains map[string][]store.DomainEntry) error {
	for _, table := range []string{store.AttributeCatalogName, store.DomainCatalogName} {
		if _, err := duckdb.Exec(ctx, l.db, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	attrStmt, err := duckdb.Prepare(ctx, l.db, `
		INSERT INTO sdvattribute (
			attributename, attributetablename, attributecolumnname, fuzzycolumnname,
			attributelogicaldatatype, attributelevel, algorithmname, tiebreakrule,
			tiebreaklowlabel, tiebreakhighlabel, attributeprecision, attributeuom,
			nullratingreplacementvalue, notratedphrase, domainname,
			primaryconcolname, secondaryconcolname, fixedfilters
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare attribute statement: %w", err)
	}
	defer attrStmt.Close()

	for _, a := range attributes {
		var nullReplacement sql.NullFloat64
		if a.NullReplacement != nil {
			nullReplacement = sql.NullFloat64{Float64: *a.NullReplacement, Valid: true}
		}
		_, err := attrStmt.ExecContext(ctx,
			a.Name, a.Table, a.Column, a.FuzzyColumn,
			a.LogicalType, a.Level, a.Algorithm, a.TieBreak,
			a.LowerLabel, a.HigherLabel, a.Precision, a.Unit,
			nullReplacement, a.NotRated, a.DomainName,
			a.PrimaryColumn, a.SecondaryColumn, catalog.FormatFilters(a.Filters),
		)
		if err != nil {
			return fmt.Errorf("insert attribute %s: %w", a.Name, err)
		}
	}

	domainStmt, err := duckdb.Prepare(ctx, l.db,
		`INSERT INTO sdvdomain (domainname, choicesequence, choice, choicedescription) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare domain statement: %w", err)
	}
	defer domainStmt.Close()

	for name, entries := range domains {
		for _, e := range entries {
			if _, err := domainStmt.ExecContext(ctx, name, e.Sequence, e.Value, e.Description); err != nil {
				return fmt.Errorf("insert domain %s value %s: %w", name, e.Value, err)
			}
		}
	}
	return nil
}

func (l *loader) ImportCSV(ctx context.Context, table, path string) (int64, error) {
	if !isSurveyTable(table) {
		return 0, fmt.Errorf("unknown survey table %q", table)
	}
	// read_csv_auto does not take a bound path, so the literal is quoted here
	query := fmt.Sprintf(
		"INSERT INTO %s BY NAME SELECT * FROM read_csv_auto('%s', header = true)",
		table, strings.ReplaceAll(path, "'", "''"),
	)
	res, err := duckdb.Exec(ctx, l.db, query)
	if err != nil {
		return 0, fmt.Errorf("import %s into %s: %w", path, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("table", table).Str("path", path).Int64("rows", n).Msg("imported survey extract")
	return n, nil
}

func isSurveyTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}
