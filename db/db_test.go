package db_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/habedi/sessiond/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOpen checks that Open creates the parent directory and the database file.
func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	gdb, err := db.Open(path)
	require.NoError(t, err, "Open should not return an error")

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "Database file should exist")
	assert.True(t, gdb.Migrator().HasTable(&db.TokenRecord{}), "sessions table should be migrated")

	assert.NoError(t, db.Close(gdb), "Close should not return an error")
}

// TestClose_Nil checks that closing a nil handle is a no-op.
func TestClose_Nil(t *testing.T) {
	assert.NoError(t, db.Close(nil))
}
