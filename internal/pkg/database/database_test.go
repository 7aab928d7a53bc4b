package database

import (
	"path/filepath"
	"testing"

	"github.com/opendce/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_SQLiteCreatesTables(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "data", "dce.db")
	db, err := InitDB("sqlite", dsn)
	require.NoError(t, err)

	for _, m := range []interface{}{&model.Procedure{}, &model.Lot{}, &model.LotDocument{}, &model.SectionDocument{}, &model.Activity{}} {
		assert.True(t, db.Migrator().HasTable(m))
	}
	assert.FileExists(t, dsn)
}
