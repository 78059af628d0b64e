package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "pins.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateSQLite(db))
	require.NoError(t, MigrateSQLite(db))

	for _, table := range []string{"users", "user_saved_pins", "pins", "pin_tags", "pin_likes", "pin_comments", "comments"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestSQLiteEnforcesUniqueDisplayName(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "pins.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, MigrateSQLite(db))

	const insert = "INSERT INTO users(id, fname, email, password_hash, created_at, updated_at) VALUES(?, ?, ?, 'x', '', '')"
	_, err = db.Exec(insert, "1", "ann", "a@example.com")
	require.NoError(t, err)
	_, err = db.Exec(insert, "2", "ann", "b@example.com")
	assert.Error(t, err)
	_, err = db.Exec(insert, "3", "bob", "a@example.com")
	assert.NoError(t, err, "email is not unique at the data layer")
}
