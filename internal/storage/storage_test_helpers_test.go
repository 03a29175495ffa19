package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := New(path)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(context.Background()))

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
