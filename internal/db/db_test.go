package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"congresshub-backend/internal/db"
	testutil "congresshub-backend/test/util"
)

func TestOpenAppliesSchemaIdempotently(t *testing.T) {
	database := testutil.OpenIngestDB(t)

	// re-applying the embedded schema must be a no-op
	_, err := database.Exec(db.Schema)
	if err != nil {
		t.Fatal(err)
	}

	version, err := db.GetMeta(context.Background(), database, "schema_version")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, db.SchemaVersion, version)
}

func TestCheckSchemaCleanStore(t *testing.T) {
	database := testutil.OpenIngestDB(t)

	drift, err := db.CheckSchema(context.Background(), database)
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, drift)
}

func TestCheckSchemaDetectsDrift(t *testing.T) {
	database := testutil.OpenIngestDB(t)
	ctx := context.Background()

	_, err := database.Exec(`ALTER TABLE members RENAME COLUMN party TO party_old`)
	if err != nil {
		t.Fatal(err)
	}
	err = db.SetMeta(ctx, database, "schema_version", "0")
	if err != nil {
		t.Fatal(err)
	}

	drift, err := db.CheckSchema(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, drift, "members.party is missing")
	require.Contains(t, drift, `schema_version is "0", expected "1"`)
}

func TestCycleCounterRoundTrip(t *testing.T) {
	database := testutil.OpenIngestDB(t)
	ctx := context.Background()

	n, err := db.CycleCounter(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 0, n)

	err = db.SetCycleCounter(ctx, database, 7)
	if err != nil {
		t.Fatal(err)
	}
	n, err = db.CycleCounter(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 7, n)
}
