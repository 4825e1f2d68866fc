package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_BootsSurveySchema(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "duckdb-test-*")
	require.NoError(t, err)

	defer func() {
		err := os.RemoveAll(tmpDir)
		if err != nil {
			t.Errorf("failed to cleanup test directory: %v", err)
		}
	}()

	dbPath := filepath.Join(tmpDir, "survey.db")
	db, err := NewDB(Settings{
		DbPath: dbPath,
	})
	require.NoError(t, err)
	require.NotNil(t, db)

	defer func() {
		err := db.Close()
		if err != nil {
			t.Errorf("failed to close database connection: %v", err)
		}
	}()

	_, err = db.Exec(
		`INSERT INTO component (cokey, mukey, compname, comppct_r, majcompflag) VALUES (?, ?, ?, ?, ?)`,
		"11", "1", "Clarion", 85.0, "Yes",
	)
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM component WHERE mukey = ?", "1").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExec_UsesContextTransaction(t *testing.T) {
	db, err := NewDB(Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	// Given a row written inside a transaction carried by the context
	_, err = Exec(WithTransaction(ctx, tx), db,
		`INSERT INTO mapunit (mukey, areasymbol) VALUES (?, ?)`, "1", "IA169")
	require.NoError(t, err)

	// When the transaction is rolled back
	require.NoError(t, tx.Rollback())

	// Then the row is gone
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM mapunit").Scan(&count))
	assert.Equal(t, 0, count)
}
