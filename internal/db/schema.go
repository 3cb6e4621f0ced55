package db

import (
	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// SchemaVersion must match the schema_version stamp in ingest_meta, the
// persistence layer refuses to run against anything else.
const SchemaVersion = "1"
