package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"congresshub-backend/internal/config"
	"congresshub-backend/internal/congressapi"
	"congresshub-backend/internal/scrapers/leadership"
	"congresshub-backend/internal/store"
	"congresshub-backend/internal/telemetry"
	"congresshub-backend/internal/upstream"
	"congresshub-backend/internal/verify"
	libtelemetry "congresshub-backend/lib/telemetry"
	testutil "congresshub-backend/test/util"
)

func TestMain(m *testing.M) {
	cleanup := libtelemetry.SetupForTesting("congresshub.orchestrator.test")
	code := m.Run()
	cleanup()
	os.Exit(code)
}

// fixtureUpstream serves a small but complete upstream, mutable between
// cycles so tests can watch entities change and disappear.
type fixtureUpstream struct {
	mu             sync.Mutex
	failMembers    bool
	includeLC200   bool
	aliceLastName  string
	judiciaryChair string
}

func (f *fixtureUpstream) handler(t *testing.T) http.Handler {
	writeJson := func(w http.ResponseWriter, v any) {
		w.Header().Set("content-type", "application/json")
		err := json.NewEncoder(w).Encode(v)
		if err != nil {
			t.Error(err)
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		pagination := func(n int) map[string]any {
			return map[string]any{"count": n}
		}

		switch r.URL.Path {
		case "/congress":
			writeJson(w, map[string]any{
				"congresses": []map[string]any{
					{"congress": 117, "start_year": 2021, "end_year": 2023},
					{"congress": 118, "start_year": 2023, "end_year": 2025, "is_current": true},
				},
				"pagination": pagination(2),
			})

		case "/member/congress/118":
			if f.failMembers {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeJson(w, map[string]any{
				"members": []map[string]any{
					{
						"bioguide_id": "A000001",
						"first_name":  "Alice",
						"last_name":   f.aliceLastName,
						"state":       "VT",
						"party":       "D",
						"terms": []map[string]any{
							{"congress": 118, "chamber": "Senate", "start": "2023-01-03", "is_current": true},
						},
					},
					{
						"bioguide_id": "B000002",
						"first_name":  "Bob",
						"last_name":   "Brown",
						"state":       "OH",
						"district":    4,
						"party":       "R",
						"terms": []map[string]any{
							{"congress": 118, "chamber": "House", "start": "2023-01-03", "is_current": true},
						},
					},
					{
						"bioguide_id": "C000003",
						"first_name":  "Carol",
						"last_name":   "Chen",
						"state":       "VA",
						"party":       "D",
						"terms": []map[string]any{
							{"congress": 118, "chamber": "Senate", "start": "2023-01-03", "is_current": true},
						},
					},
				},
				"pagination": pagination(3),
			})

		case "/committee/house":
			writeJson(w, map[string]any{
				"committees": []map[string]any{
					{"name": "Committee on Rules", "chamber": "House", "committee_type": "standing"},
				},
				"pagination": pagination(1),
			})
		case "/committee/senate":
			writeJson(w, map[string]any{
				"committees": []map[string]any{
					{"name": "Committee on the Judiciary", "chamber": "Senate", "committee_type": "standing"},
					{
						"name": "Subcommittee on Antitrust", "chamber": "Senate",
						"is_subcommittee": true, "parent_name": "Committee on the Judiciary",
					},
				},
				"pagination": pagination(2),
			})
		case "/committee/joint":
			writeJson(w, map[string]any{"committees": []map[string]any{}, "pagination": pagination(0)})

		case "/hearing/118":
			hearings := []map[string]any{
				{
					"id": "LC100", "title": "Judiciary Oversight",
					"scheduled": "2024-03-15T10:00:00Z", "status": "Scheduled",
					"committees": []map[string]any{
						{"name": "Committee on the Judiciary", "chamber": "Senate", "is_primary": true},
					},
				},
			}
			if f.includeLC200 {
				hearings = append(hearings, map[string]any{
					"id": "LC200", "title": "Field Hearing", "status": "Scheduled",
				})
			}
			writeJson(w, map[string]any{
				"hearings":   hearings,
				"pagination": pagination(len(hearings)),
			})

		default:
			t.Errorf("unexpected upstream path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

const leadershipPageTemplate = `<html><body>
<section><h2>Senate</h2><table>
	<tr><td>Judiciary Committee</td><td>%s</td><td></td></tr>
</table></section>
<section><h2>House</h2><table>
	<tr><td>Committee on Rules</td><td>Bob Brown</td><td></td></tr>
</table></section>
</body></html>`

func testOrchestrator(t *testing.T, fixture *fixtureUpstream) (Orchestrator, *sql.DB) {
	t.Helper()

	api := httptest.NewServer(fixture.handler(t))
	t.Cleanup(api.Close)
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture.mu.Lock()
		chair := fixture.judiciaryChair
		fixture.mu.Unlock()
		fmt.Fprintf(w, leadershipPageTemplate, chair)
	}))
	t.Cleanup(page.Close)

	cfg := config.Config{
		ApiKey:              "test-key",
		BaseUrl:             api.URL,
		LeadershipUrl:       page.URL,
		TargetCongress:      0,
		QuotaPerHour:        1 << 20,
		CycleTimeoutSeconds: 60,
		GraceCycles:         2,
	}

	database := testutil.OpenIngestDB(t)
	tel := &telemetry.RecordAPI{}
	u := upstream.NewClient(upstream.Options{
		BaseUrl:      cfg.BaseUrl,
		ApiKey:       cfg.ApiKey,
		QuotaPerHour: cfg.QuotaPerHour,
		Tel:          tel,
	})

	orch := New(
		cfg,
		store.NewStore(database, tel),
		congressapi.NewClient(u, tel),
		leadership.NewClient(cfg.LeadershipUrl, tel),
		tel,
	)
	return orch, database
}

func stageByName(t *testing.T, report CycleReport, name string) StageReport {
	t.Helper()
	for _, stage := range report.Stages {
		if stage.Name == name {
			return stage
		}
	}
	t.Fatalf("no stage named %s", name)
	return StageReport{}
}

func queryInt(t *testing.T, database *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	err := database.QueryRow(query, args...).Scan(&n)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func queryString(t *testing.T, database *sql.DB, query string, args ...any) string {
	t.Helper()
	var s string
	err := database.QueryRow(query, args...).Scan(&s)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCycleLifecycle(t *testing.T) {
	fixture := &fixtureUpstream{includeLC200: true, aliceLastName: "Anderson", judiciaryChair: "Alice Anderson"}
	orch, database := testOrchestrator(t, fixture)
	ctx := context.Background()

	// first cycle on an empty store creates everything
	{
		report, err := orch.Cycle(ctx, CycleOptions{})
		if err != nil {
			t.Fatal(err)
		}
		require.False(t, report.Failed())
		require.Equal(t, 118, report.Congress)
		require.Equal(t, 1, report.Cycle)

		require.Equal(t, 2, stageByName(t, report, StageSessions).Store.Created)
		require.Equal(t, 3, stageByName(t, report, StageMembers).Store.Created)
		require.Equal(t, 3, stageByName(t, report, StageCommittees).Store.Created)
		require.Equal(t, 2, stageByName(t, report, StageMemberships).Store.Created)
		require.Equal(t, 2, stageByName(t, report, StageHearings).Store.Created)

		// leadership urls didn't exist on the page, so no committee updates
		require.Equal(t, 2, queryInt(t, database,
			`SELECT COUNT(*) FROM committee_memberships WHERE role = 'Chair' AND is_current = 1`))

		result, err := verify.Run(ctx, database)
		if err != nil {
			t.Fatal(err)
		}
		require.True(t, result.Ok(), "%v", result.Violations)
	}

	// an identical second cycle only touches
	{
		report, err := orch.Cycle(ctx, CycleOptions{})
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, 2, report.Cycle)
		members := stageByName(t, report, StageMembers)
		require.Equal(t, 0, members.Store.Created)
		require.Equal(t, 0, members.Store.Updated)
		require.Equal(t, 3, members.Store.Touched)

		require.Equal(t, 2, queryInt(t, database,
			`SELECT last_seen_cycle FROM members WHERE bioguide_id = 'A000001'`))
	}

	// a changed attribute becomes an update
	{
		fixture.mu.Lock()
		fixture.aliceLastName = "Anderson-Smith"
		fixture.mu.Unlock()

		report, err := orch.Cycle(ctx, CycleOptions{})
		if err != nil {
			t.Fatal(err)
		}
		members := stageByName(t, report, StageMembers)
		require.Equal(t, 1, members.Store.Updated)
		require.Equal(t, 2, members.Store.Touched)
	}

	// LC200 disappears; within the grace window it survives untouched
	{
		fixture.mu.Lock()
		fixture.includeLC200 = false
		fixture.mu.Unlock()

		report, err := orch.Cycle(ctx, CycleOptions{})
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, 0, stageByName(t, report, StageHearings).Store.Deactivated)
		require.Equal(t, 0, queryInt(t, database,
			`SELECT COUNT(*) FROM hearings WHERE upstream_id = 'LC200' AND status = 'Canceled'`))
	}

	// the second consecutive absence crosses the grace threshold
	{
		report, err := orch.Cycle(ctx, CycleOptions{})
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, 1, stageByName(t, report, StageHearings).Store.Deactivated)
		require.Equal(t, 1, queryInt(t, database,
			`SELECT COUNT(*) FROM hearings WHERE upstream_id = 'LC200' AND status = 'Canceled'`))
	}
}

func TestCycleStreamFailureSuppressesDeactivation(t *testing.T) {
	fixture := &fixtureUpstream{includeLC200: true, aliceLastName: "Anderson", judiciaryChair: "Alice Anderson"}
	orch, database := testOrchestrator(t, fixture)
	ctx := context.Background()

	_, err := orch.Cycle(ctx, CycleOptions{})
	if err != nil {
		t.Fatal(err)
	}

	fixture.mu.Lock()
	fixture.failMembers = true
	fixture.mu.Unlock()

	// members fail for many cycles running; nobody gets deactivated and
	// the cycle counter never advances
	for i := 0; i < 3; i++ {
		report, err := orch.Cycle(ctx, CycleOptions{})
		if err != nil {
			t.Fatal(err)
		}
		require.True(t, report.Failed())
		require.False(t, report.AllFailed())
		require.Equal(t, StageFailed, stageByName(t, report, StageMembers).State)
		require.Equal(t, StageDone, stageByName(t, report, StageHearings).State)
		require.Equal(t, 2, report.Cycle)
	}

	require.Equal(t, 3, queryInt(t, database,
		`SELECT COUNT(*) FROM members WHERE is_current = 1`))
}

func TestCycleDryRunWritesNothing(t *testing.T) {
	fixture := &fixtureUpstream{includeLC200: true, aliceLastName: "Anderson", judiciaryChair: "Alice Anderson"}
	orch, database := testOrchestrator(t, fixture)
	ctx := context.Background()

	report, err := orch.Cycle(ctx, CycleOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, report.Failed())
	require.Equal(t, 3, stageByName(t, report, StageMembers).Plan.Creates)

	require.Equal(t, 0, queryInt(t, database, `SELECT COUNT(*) FROM members`))
	require.Equal(t, 0, queryInt(t, database, `SELECT COUNT(*) FROM hearings`))

	next, err := orch.store.NextCycle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, next)
}

func TestCycleOnlyRestrictsStagesAndHoldsCounter(t *testing.T) {
	fixture := &fixtureUpstream{includeLC200: true, aliceLastName: "Anderson", judiciaryChair: "Alice Anderson"}
	orch, database := testOrchestrator(t, fixture)
	ctx := context.Background()

	report, err := orch.Cycle(ctx, CycleOptions{Only: []string{StageSessions}})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, StageDone, stageByName(t, report, StageSessions).State)
	require.Equal(t, StageSkipped, stageByName(t, report, StageMembers).State)

	require.Equal(t, 2, queryInt(t, database, `SELECT COUNT(*) FROM congressional_sessions`))
	require.Equal(t, 0, queryInt(t, database, `SELECT COUNT(*) FROM members`))

	// targeted runs never advance the shared counter
	next, err := orch.store.NextCycle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, next)
}

func TestCycleChairHandoverKeepsSingleCurrentChair(t *testing.T) {
	fixture := &fixtureUpstream{includeLC200: true, aliceLastName: "Anderson", judiciaryChair: "Alice Anderson"}
	orch, database := testOrchestrator(t, fixture)
	ctx := context.Background()

	_, err := orch.Cycle(ctx, CycleOptions{})
	if err != nil {
		t.Fatal(err)
	}

	fixture.mu.Lock()
	fixture.judiciaryChair = "Carol Chen"
	fixture.mu.Unlock()

	report, err := orch.Cycle(ctx, CycleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, report.Failed())

	// the displaced chair is downgraded in the same cycle, never left
	// lingering as a second current Chair until the grace window
	require.Equal(t, 1, queryInt(t, database, `
		SELECT COUNT(*) FROM committee_memberships
		WHERE committee_name = 'Committee on the Judiciary'
			AND role = 'Chair' AND is_current = 1`))
	require.Equal(t, "C000003", queryString(t, database, `
		SELECT bioguide_id FROM committee_memberships
		WHERE committee_name = 'Committee on the Judiciary'
			AND role = 'Chair' AND is_current = 1`))
	require.Equal(t, 1, queryInt(t, database, `
		SELECT COUNT(*) FROM committee_memberships
		WHERE bioguide_id = 'A000001' AND role = 'Member' AND is_current = 1`))

	result, err := verify.Run(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, result.Ok(), "%v", result.Violations)
}
