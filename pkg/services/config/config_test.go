package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidYAML_PopulatesAllFields(t *testing.T) {
	// Given
	// No indentation at the top level to avoid YAML parsing errors
	path := writeFile(t, "atlas.yaml", `source:
  driver: databricks
  profile_path: /home/me/.databrickscfg
  profile: soils
  http_path: /sql/1.0/warehouses/wh
  catalog: main
  schema: ssurgo
catalog:
  path: catalog.yaml
engine:
  workers: 8
  warning_limit: 20
export:
  bucket: ratings
  prefix: ia169/
  region: us-east-2
server:
  addr: ":9090"
`)

	// When
	cfg, err := Load(path)

	// Then
	require.NoError(t, err)
	assert.Equal(t, DriverDatabricks, cfg.Source.Driver)
	assert.Equal(t, "soils", cfg.Source.Profile)
	assert.Equal(t, "/sql/1.0/warehouses/wh", cfg.Source.HTTPPath)
	assert.Equal(t, "ssurgo", cfg.Source.Schema)
	assert.Equal(t, "catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, 20, cfg.Engine.WarningLimit)
	assert.Equal(t, "ratings", cfg.Export.Bucket)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "soil-atlas.db", cfg.Store.Path)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverDuckDB, cfg.Source.Driver)
	assert.Equal(t, "soil-atlas.db", cfg.Source.Path)
	assert.True(t, cfg.Catalog.Builtin)
	assert.Equal(t, 100, cfg.Engine.WarningLimit)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SOIL_ATLAS_ENGINE_WORKERS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("unparseable yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "source: driver: duckdb: bad"))
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Load(writeFile(t, "driver.yaml", "source:\n  driver: oracle\n"))
		assert.ErrorContains(t, err, "invalid config")
	})

	t.Run("databricks without http path", func(t *testing.T) {
		_, err := Load(writeFile(t, "dbx.yaml", "source:\n  driver: databricks\n  profile_path: x\n"))
		assert.ErrorContains(t, err, "HTTPPath")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, ".databrickscfg", `[DEFAULT]
host = https://adb-1.azuredatabricks.net
token = dapi-default

[soils]
host = https://adb-2.azuredatabricks.net
token = dapi-soils

[broken]
host = https://adb-3.azuredatabricks.net
`)

	reg, err := NewRegistry(path)
	require.NoError(t, err)

	t.Run("lists profiles with keys", func(t *testing.T) {
		profiles, err := reg.GetProfiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"DEFAULT", "soils", "broken"}, profiles)
	})

	t.Run("named profile", func(t *testing.T) {
		p, err := reg.GetProfile(ctx, "soils")
		require.NoError(t, err)
		assert.Equal(t, "https://adb-2.azuredatabricks.net", p.Host)
		assert.Equal(t, "dapi-soils", p.Token)
	})

	t.Run("empty name is the default profile", func(t *testing.T) {
		p, err := reg.GetProfile(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, "dapi-default", p.Token)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := reg.GetProfile(ctx, "absent")
		assert.Error(t, err)
	})

	t.Run("profile without token", func(t *testing.T) {
		_, err := reg.GetProfile(ctx, "broken")
		assert.ErrorContains(t, err, "needs host and token")
	})
}
