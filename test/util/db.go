package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"congresshub-backend/internal/db"
)

// OpenIngestDB opens a throwaway database with the full schema applied; it
// is cleaned up with the test's temp dir.
func OpenIngestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
