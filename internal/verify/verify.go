// Package verify runs read-only consistency checks over an ingested store.
// Each check is a query whose rows are violations; an empty result set means
// the invariant holds.
package verify

import (
	"context"
	"database/sql"
	"fmt"
)

// Violation is one offending row from one check.
type Violation struct {
	Check  string
	Detail string
}

// Result holds everything a verification pass found.
type Result struct {
	Checked    int
	Violations []Violation
}

func (r Result) Ok() bool {
	return len(r.Violations) == 0
}

type check struct {
	name  string
	query string
	// describe renders one violation row; each query selects exactly the
	// columns describe scans.
	describe func(rows *sql.Rows) (string, error)
}

var checks = []check{
	{
		name: "membership-member-exists",
		query: `
			SELECT cm.bioguide_id, cm.congress_session
			FROM committee_memberships cm
			LEFT JOIN members m
				ON m.bioguide_id = cm.bioguide_id
				AND m.congress_session = cm.congress_session
			WHERE m.id IS NULL
		`,
		describe: func(rows *sql.Rows) (string, error) {
			var bioguide string
			var congress int
			err := rows.Scan(&bioguide, &congress)
			return fmt.Sprintf("membership references missing member %s/%d", bioguide, congress), err
		},
	},
	{
		name: "membership-committee-exists",
		query: `
			SELECT cm.committee_chamber, cm.committee_name
			FROM committee_memberships cm
			LEFT JOIN committees c
				ON c.chamber = cm.committee_chamber
				AND c.canonical_name = cm.committee_name
			WHERE c.id IS NULL
		`,
		describe: func(rows *sql.Rows) (string, error) {
			var chamber, name string
			err := rows.Scan(&chamber, &name)
			return fmt.Sprintf("membership references missing committee %s/%s", chamber, name), err
		},
	},
	{
		name: "subcommittee-parent-chamber",
		query: `
			SELECT chamber, canonical_name, parent_chamber
			FROM committees
			WHERE parent_name IS NOT NULL AND parent_chamber != chamber
		`,
		describe: func(rows *sql.Rows) (string, error) {
			var chamber, name, parentChamber string
			err := rows.Scan(&chamber, &name, &parentChamber)
			return fmt.Sprintf("subcommittee %s/%s has parent in chamber %s", chamber, name, parentChamber), err
		},
	},
	{
		name: "subcommittee-parent-exists",
		query: `
			SELECT c.chamber, c.canonical_name
			FROM committees c
			LEFT JOIN committees p
				ON p.chamber = c.parent_chamber
				AND p.canonical_name = c.parent_name
			WHERE c.parent_name IS NOT NULL AND p.id IS NULL
		`,
		describe: func(rows *sql.Rows) (string, error) {
			var chamber, name string
			err := rows.Scan(&chamber, &name)
			return fmt.Sprintf("subcommittee %s/%s has no parent row", chamber, name), err
		},
	},
	{
		name: "single-current-chair",
		query: `
			SELECT committee_chamber, committee_name, congress_session, role, COUNT(*)
			FROM committee_memberships
			WHERE is_current = 1 AND role IN ('Chair', 'Ranking Member')
			GROUP BY committee_chamber, committee_name, congress_session, role
			HAVING COUNT(*) > 1
		`,
		describe: func(rows *sql.Rows) (string, error) {
			var chamber, name, role string
			var congress, n int
			err := rows.Scan(&chamber, &name, &congress, &role, &n)
			return fmt.Sprintf("committee %s/%s congress %d has %d current rows with role %s", chamber, name, congress, n, role), err
		},
	},
	{
		name: "unique-house-seat",
		query: `
			SELECT state, district, congress_session, COUNT(*)
			FROM members
			WHERE district IS NOT NULL AND is_current = 1
			GROUP BY state, district, chamber, congress_session
			HAVING COUNT(*) > 1
		`,
		describe: func(rows *sql.Rows) (string, error) {
			var state string
			var district, congress, n int
			err := rows.Scan(&state, &district, &congress, &n)
			return fmt.Sprintf("seat %s-%d congress %d held by %d current members", state, district, congress, n), err
		},
	},
	{
		name: "hearing-time-format",
		query: `
			SELECT congress_session, upstream_id, scheduled_at
			FROM hearings
			WHERE scheduled_at IS NOT NULL
				AND scheduled_at NOT GLOB
				'[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9] [0-9][0-9]:[0-9][0-9]:[0-9][0-9]'
		`,
		describe: func(rows *sql.Rows) (string, error) {
			var congress int
			var upstreamId, scheduledAt string
			err := rows.Scan(&congress, &upstreamId, &scheduledAt)
			return fmt.Sprintf("hearing %d/%s has malformed scheduled_at %q", congress, upstreamId, scheduledAt), err
		},
	},
	{
		name: "hearing-primary-committee-exists",
		query: `
			SELECT h.congress_session, h.upstream_id
			FROM hearings h
			LEFT JOIN committees c
				ON c.chamber = h.primary_committee_chamber
				AND c.canonical_name = h.primary_committee_name
			WHERE h.primary_committee_name IS NOT NULL AND c.id IS NULL
		`,
		describe: func(rows *sql.Rows) (string, error) {
			var congress int
			var upstreamId string
			err := rows.Scan(&congress, &upstreamId)
			return fmt.Sprintf("hearing %d/%s references missing committee", congress, upstreamId), err
		},
	},
	{
		name: "session-single-current",
		query: `
			SELECT COUNT(*)
			FROM congressional_sessions
			WHERE is_current = 1
			HAVING COUNT(*) > 1
		`,
		describe: func(rows *sql.Rows) (string, error) {
			var n int
			err := rows.Scan(&n)
			return fmt.Sprintf("%d sessions are marked current", n), err
		},
	},
}

// Run executes every check against the given database.
func Run(ctx context.Context, database *sql.DB) (Result, error) {
	var result Result
	for _, c := range checks {
		violations, err := runCheck(ctx, database, c)
		if err != nil {
			return result, fmt.Errorf("check %s: %w", c.name, err)
		}
		result.Checked++
		result.Violations = append(result.Violations, violations...)
	}
	return result, nil
}

func runCheck(ctx context.Context, database *sql.DB, c check) ([]Violation, error) {
	rows, err := database.QueryContext(ctx, c.query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Violation
	for rows.Next() {
		detail, err := c.describe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, Violation{Check: c.name, Detail: detail})
	}
	return out, rows.Err()
}
