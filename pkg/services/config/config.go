// Package config loads the settings shared by the command line and web
// binaries from a YAML file, with SOIL_ATLAS_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const (
	DriverDuckDB     = "duckdb"
	DriverSQLite     = "sqlite"
	DriverSnowflake  = "snowflake"
	DriverDatabricks = "databricks"
)

// Source selects the database the survey tables are read from.
type Source struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=duckdb sqlite snowflake databricks"`
	// Path is the database file of the embedded drivers.
	Path string `mapstructure:"path" validate:"required_if=Driver duckdb,required_if=Driver sqlite"`
	// ProfilePath points at the snowflake settings file or the
	// .databrickscfg file holding Profile.
	ProfilePath string `mapstructure:"profile_path" validate:"required_if=Driver snowflake,required_if=Driver databricks"`
	Profile     string `mapstructure:"profile"`
	HTTPPath    string `mapstructure:"http_path" validate:"required_if=Driver databricks"`
	Catalog     string `mapstructure:"catalog"`
	Schema      string `mapstructure:"schema"`
}

type Catalog struct {
	// Path is a YAML attribute catalog. When empty the catalog is read from
	// the sdvattribute and sdvdomain tables of the source, or the bundled
	// catalog when Builtin is set.
	Path    string `mapstructure:"path"`
	Builtin bool   `mapstructure:"builtin"`
}

type Engine struct {
	Workers      int `mapstructure:"workers" validate:"min=0,max=256"`
	WarningLimit int `mapstructure:"warning_limit" validate:"min=0"`
}

// Store is the DuckDB database rating runs are persisted to.
type Store struct {
	Path string `mapstructure:"path" validate:"required"`
}

type Export struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

type Server struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

type Config struct {
	Source  Source  `mapstructure:"source"`
	Catalog Catalog `mapstructure:"catalog"`
	Engine  Engine  `mapstructure:"engine"`
	Store   Store   `mapstructure:"store"`
	Export  Export  `mapstructure:"export"`
	Server  Server  `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.driver", DriverDuckDB)
	v.SetDefault("source.path", "soil-atlas.db")
	v.SetDefault("catalog.builtin", true)
	v.SetDefault("engine.workers", 0)
	v.SetDefault("engine.warning_limit", 100)
	v.SetDefault("store.path", "soil-atlas.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
}

// Load reads path, if given, over the defaults and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SOIL_ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error { return validate.Struct(c) }
