package backend

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/soil-atlas/pkg/services/config"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb"
	_ "github.com/mattn/go-sqlite3"
)

func OpenDuckDB(_ context.Context, cfg config.Source) (*sql.DB, error) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.Path})
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", cfg.Path, err)
	}
	return db, nil
}

// OpenSQLite opens an existing SQLite survey export read-only.
func OpenSQLite(ctx context.Context, cfg config.Source) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", cfg.Path))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}
	return db, nil
}
