// Package app wires the configured stores and services together for the
// command line and web binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/de-tools/soil-atlas/pkg/services/batch"
	"github.com/de-tools/soil-atlas/pkg/services/config"
	"github.com/de-tools/soil-atlas/pkg/services/rating"
	"github.com/de-tools/soil-atlas/pkg/store/backend"
	"github.com/de-tools/soil-atlas/pkg/store/catalog"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/ratings"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/runs"
	"github.com/de-tools/soil-atlas/pkg/store/duckdb/survey"
	"github.com/de-tools/soil-atlas/pkg/store/export"
	"github.com/de-tools/soil-atlas/pkg/store/source"
	"github.com/rs/zerolog"
)

type App struct {
	Config *config.Config
	Rating rating.Service
	Batch  batch.Controller
	// Loader writes into the store database.
	Loader survey.Loader
	// Exporter is nil unless an export bucket is configured.
	Exporter export.Exporter

	surveyDB *sql.DB
	storeDB  *sql.DB
}

// Factory builds an App from a config file path.
type Factory func(ctx context.Context, cfgPath string) (*App, error)

// Load reads the config and builds the App with the default backends.
func Load(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, backend.NewDefaultRegistry())
}

func New(ctx context.Context, cfg *config.Config, backends backend.Registry) (*App, error) {
	logger := zerolog.Ctx(ctx)

	storeDB, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.Store.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB instance: %w", err)
	}
	a := &App{Config: cfg, storeDB: storeDB, surveyDB: storeDB}

	// the run store doubles as the survey database when both name the same file
	if cfg.Source.Driver != config.DriverDuckDB || cfg.Source.Path != cfg.Store.Path {
		a.surveyDB, err = backends.Open(ctx, cfg.Source)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open %s source: %w", cfg.Source.Driver, err)
		}
	}

	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info().
		Str("driver", cfg.Source.Driver).
		Str("store", cfg.Store.Path).
		Bool("export", a.Exporter != nil).
		Msg("soil atlas configured")
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	src, err := source.NewSQLSource(a.surveyDB)
	if err != nil {
		return err
	}
	cat, err := openCatalog(cfg.Catalog, src)
	if err != nil {
		return err
	}
	a.Rating, err = rating.NewService(src, cat, rating.Settings{
		Workers:      cfg.Engine.Workers,
		WarningLimit: cfg.Engine.WarningLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create rating service: %w", err)
	}

	runStore, err := runs.NewStore(a.storeDB)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	ratingStore, err := ratings.NewStore(a.storeDB)
	if err != nil {
		return fmt.Errorf("failed to create rating store: %w", err)
	}
	ctrl := batch.NewController(a.storeDB, a.Rating, runStore, ratingStore)
	if err := ctrl.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize batch controller: %w", err)
	}
	a.Batch = ctrl

	a.Loader, err = survey.NewLoader(a.storeDB)
	if err != nil {
		return err
	}

	if cfg.Export.Bucket != "" {
		awsCfg, err := export.LoadConfig(ctx, cfg.Export.Region)
		if err != nil {
			return err
		}
		a.Exporter, err = export.NewS3Exporter(export.NewS3Client(*awsCfg), cfg.Export.Bucket, cfg.Export.Prefix)
		if err != nil {
			return err
		}
	}
	return nil
}

func openCatalog(cfg config.Catalog, src source.RowSource) (catalog.Catalog, error) {
	switch {
	case cfg.Path != "":
		return catalog.LoadFile(cfg.Path)
	case cfg.Builtin:
		return catalog.Default()
	default:
		return catalog.NewSourceCatalog(src)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.surveyDB != nil && a.surveyDB != a.storeDB {
		errs = append(errs, a.surveyDB.Close())
	}
	if a.storeDB != nil {
		errs = append(errs, a.storeDB.Close())
	}
	return errors.Join(errs...)
}
