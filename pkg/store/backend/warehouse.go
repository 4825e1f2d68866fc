package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	dbsql "github.com/databricks/databricks-sql-go"
	"github.com/de-tools/soil-atlas/pkg/services/config"
	sf "github.com/snowflakedb/gosnowflake"
	"github.com/spf13/viper"
)

// LoadSnowflakeConfig loads connection settings from the specified profile path
func LoadSnowflakeConfig(profilePath string) (*sf.Config, error) {
	v := viper.New()
	v.SetConfigFile(profilePath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg sf.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse snowflake config: %w", err)
	}
	return &cfg, nil
}

func OpenSnowflake(_ context.Context, cfg config.Source) (*sql.DB, error) {
	sfCfg, err := LoadSnowflakeConfig(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Catalog != "" {
		sfCfg.Database = cfg.Catalog
	}
	if cfg.Schema != "" {
		sfCfg.Schema = cfg.Schema
	}

	dsn, err := sf.DSN(sfCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DSN: %w", err)
	}
	return sql.Open("snowflake", dsn)
}

func OpenDatabricks(ctx context.Context, cfg config.Source) (*sql.DB, error) {
	registry, err := config.NewRegistry(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	profile, err := registry.GetProfile(ctx, cfg.Profile)
	if err != nil {
		return nil, err
	}

	connector, err := dbsql.NewConnector(
		dbsql.WithServerHostname(hostname(profile.Host)),
		dbsql.WithPort(443),
		dbsql.WithHTTPPath(cfg.HTTPPath),
		dbsql.WithAccessToken(profile.Token),
		dbsql.WithInitialNamespace(cfg.Catalog, cfg.Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("databricks connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// hostname strips the scheme and any trailing slash from a workspace URL.
func hostname(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}
