package verify_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"congresshub-backend/internal/verify"
	testutil "congresshub-backend/test/util"
)

func mustExec(t *testing.T, database *sql.DB, query string, args ...any) {
	t.Helper()
	_, err := database.Exec(query, args...)
	if err != nil {
		t.Fatal(err)
	}
}

func seedCommittee(t *testing.T, database *sql.DB, chamber, name string) {
	mustExec(t, database, `
		INSERT INTO committees (chamber, canonical_name, display_name, committee_type)
		VALUES (?, ?, ?, 'Standing')
	`, chamber, name, name)
}

func seedMember(t *testing.T, database *sql.DB, bioguide string) {
	mustExec(t, database, `
		INSERT INTO members (bioguide_id, congress_session, given_name, family_name, chamber, state, party)
		VALUES (?, 118, 'Test', ?, 'Senate', 'VT', 'Democratic')
	`, bioguide, bioguide)
}

func TestRunOnCleanStore(t *testing.T) {
	database := testutil.OpenIngestDB(t)

	seedMember(t, database, "A000001")
	seedCommittee(t, database, "Senate", "Committee on the Judiciary")
	mustExec(t, database, `
		INSERT INTO committee_memberships
			(bioguide_id, congress_session, committee_chamber, committee_name, role)
		VALUES ('A000001', 118, 'Senate', 'Committee on the Judiciary', 'Chair')
	`)

	result, err := verify.Run(context.Background(), database)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, result.Ok())
	require.Greater(t, result.Checked, 0)
}

func TestRunFindsDanglingMembership(t *testing.T) {
	database := testutil.OpenIngestDB(t)

	seedCommittee(t, database, "Senate", "Committee on the Judiciary")
	mustExec(t, database, `
		INSERT INTO committee_memberships
			(bioguide_id, congress_session, committee_chamber, committee_name, role)
		VALUES ('GHOST99', 118, 'Senate', 'Committee on the Judiciary', 'Member')
	`)

	result, err := verify.Run(context.Background(), database)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, result.Ok())
	require.Equal(t, "membership-member-exists", result.Violations[0].Check)
}

func TestRunFindsCrossChamberParent(t *testing.T) {
	database := testutil.OpenIngestDB(t)

	seedCommittee(t, database, "House", "Committee on the Judiciary")
	mustExec(t, database, `
		INSERT INTO committees
			(chamber, canonical_name, display_name, committee_type, parent_chamber, parent_name)
		VALUES ('Senate', 'Subcommittee on Antitrust', 'Subcommittee on Antitrust',
			'Subcommittee', 'House', 'Committee on the Judiciary')
	`)

	result, err := verify.Run(context.Background(), database)
	if err != nil {
		t.Fatal(err)
	}

	checks := map[string]bool{}
	for _, v := range result.Violations {
		checks[v.Check] = true
	}
	require.True(t, checks["subcommittee-parent-chamber"])
}

func TestRunFindsDoubleChair(t *testing.T) {
	database := testutil.OpenIngestDB(t)

	seedMember(t, database, "A000001")
	seedMember(t, database, "A000002")
	seedCommittee(t, database, "Senate", "Committee on the Judiciary")
	for _, bioguide := range []string{"A000001", "A000002"} {
		mustExec(t, database, `
			INSERT INTO committee_memberships
				(bioguide_id, congress_session, committee_chamber, committee_name, role, is_current)
			VALUES (?, 118, 'Senate', 'Committee on the Judiciary', 'Chair', 1)
		`, bioguide)
	}

	result, err := verify.Run(context.Background(), database)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, v := range result.Violations {
		if v.Check == "single-current-chair" {
			found = true
		}
	}
	require.True(t, found)
}

func TestRunFindsMalformedHearingTime(t *testing.T) {
	database := testutil.OpenIngestDB(t)

	mustExec(t, database, `
		INSERT INTO hearings (congress_session, upstream_id, status, scheduled_at)
		VALUES (118, 'LC100', 'Scheduled', '2024-03-15T10:00:00Z')
	`)

	result, err := verify.Run(context.Background(), database)
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, v := range result.Violations {
		if v.Check == "hearing-time-format" {
			found = true
		}
	}
	require.True(t, found)
}
