package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Open connects to the relational store and applies the embedded schema.
// Urls starting with libsql:// go through the libsql driver, everything
// else (paths, :memory:) through the in-process sqlite driver.
func Open(url string) (*sql.DB, error) {
	driver := "sqlite"
	if strings.HasPrefix(url, "libsql://") || strings.HasPrefix(url, "wss://") {
		driver = "libsql"
	}

	database, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	_, err = database.Exec(Schema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return database, nil
}

// requiredColumns are the columns each persisted table must carry. The
// schema check introspects the live database against this at startup.
var requiredColumns = map[string][]string{
	"ingest_meta": {"key", "value"},
	"congressional_sessions": {
		"congress_number", "start_year", "end_year", "is_current",
		"last_seen_cycle",
	},
	"members": {
		"bioguide_id", "congress_session", "given_name", "family_name",
		"chamber", "state", "district", "party", "term_start", "term_end",
		"is_current", "last_seen_cycle",
	},
	"committees": {
		"chamber", "canonical_name", "display_name", "parent_chamber",
		"parent_name", "committee_type", "jurisdiction", "is_active",
		"hearings_url", "members_url", "official_website_url",
		"last_seen_cycle",
	},
	"committee_memberships": {
		"bioguide_id", "congress_session", "committee_chamber",
		"committee_name", "role", "is_current", "term_start", "term_end",
		"last_seen_cycle",
	},
	"hearings": {
		"congress_session", "upstream_id", "title", "scheduled_at",
		"location", "room", "primary_committee_chamber",
		"primary_committee_name", "status", "last_seen_cycle",
	},
}

// CheckSchema verifies the schema version stamp and that every required
// column exists. It returns the list of drift findings, empty means
// compatible.
func CheckSchema(ctx context.Context, database *sql.DB) ([]string, error) {
	var drift []string

	version, err := GetMeta(ctx, database, "schema_version")
	if err != nil {
		return nil, fmt.Errorf("read schema version stamp: %w", err)
	}
	if version != SchemaVersion {
		drift = append(drift, fmt.Sprintf(
			"schema_version is %q, expected %q", version, SchemaVersion,
		))
	}

	for table, columns := range requiredColumns {
		live, err := tableColumns(ctx, database, table)
		if err != nil {
			return nil, err
		}
		if len(live) == 0 {
			drift = append(drift, fmt.Sprintf("table %s is missing", table))
			continue
		}
		for _, col := range columns {
			if !live[col] {
				drift = append(drift, fmt.Sprintf("%s.%s is missing", table, col))
			}
		}
	}

	return drift, nil
}

func tableColumns(ctx context.Context, database *sql.DB, table string) (map[string]bool, error) {
	rows, err := database.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &primaryKey)
		if err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

func GetMeta(ctx context.Context, q Querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(
		ctx, "SELECT value FROM ingest_meta WHERE key = ?", key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func SetMeta(ctx context.Context, q Querier, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ingest_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CycleCounter reads the monotonically increasing successful cycle counter.
func CycleCounter(ctx context.Context, q Querier) (int, error) {
	raw, err := GetMeta(ctx, q, "cycle_counter")
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("cycle_counter is not an integer: %q", raw)
	}
	return n, nil
}

func SetCycleCounter(ctx context.Context, q Querier, n int) error {
	return SetMeta(ctx, q, "cycle_counter", strconv.Itoa(n))
}
