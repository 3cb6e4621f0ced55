package store

import (
	"context"
	"fmt"

	"congresshub-backend/internal/db"
	"congresshub-backend/internal/model"
	"congresshub-backend/internal/reconcile"
)

func (s Store) LoadSessions(ctx context.Context) (map[int]reconcile.Stored[model.Session], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT congress_number, start_year, end_year, is_current, last_seen_cycle
		FROM congressional_sessions
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]reconcile.Stored[model.Session]{}
	for rows.Next() {
		var session model.Session
		var isCurrent, lastSeen int
		err = rows.Scan(&session.Congress, &session.StartYear, &session.EndYear, &isCurrent, &lastSeen)
		if err != nil {
			return nil, err
		}
		session.IsCurrent = isCurrent != 0
		out[session.Congress] = reconcile.Stored[model.Session]{
			Entity:        session,
			LastSeenCycle: lastSeen,
		}
	}
	return out, rows.Err()
}

func (s Store) ApplySessions(ctx context.Context, cycle int, plan reconcile.Plan[model.Session]) (Report, error) {
	var muts []mutation
	upsert := func(op opKind, session model.Session) mutation {
		return mutation{
			key: sessionKey(session.Congress),
			op:  op,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					INSERT INTO congressional_sessions
						(congress_number, start_year, end_year, is_current, last_seen_cycle)
					VALUES (?, ?, ?, ?, ?)
					ON CONFLICT (congress_number) DO UPDATE SET
						start_year = excluded.start_year,
						end_year = excluded.end_year,
						is_current = excluded.is_current,
						last_seen_cycle = excluded.last_seen_cycle,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
				`, session.Congress, session.StartYear, session.EndYear, boolInt(session.IsCurrent), cycle)
				return err
			},
		}
	}

	for _, session := range plan.Creates {
		muts = append(muts, upsert(opCreate, session))
	}
	for _, session := range plan.Updates {
		muts = append(muts, upsert(opUpdate, session))
	}
	for _, session := range plan.Touches {
		congress := session.Congress
		muts = append(muts, mutation{
			key: sessionKey(congress),
			op:  opTouch,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE congressional_sessions SET last_seen_cycle = ?
					WHERE congress_number = ?
				`, cycle, congress)
				return err
			},
		})
	}
	// sessions are never deactivated, but keep the branch so a nonzero
	// plan never silently drops rows
	for _, session := range plan.Deactivates {
		congress := session.Congress
		muts = append(muts, mutation{
			key: sessionKey(congress),
			op:  opDeactivate,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE congressional_sessions SET is_current = 0,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
					WHERE congress_number = ?
				`, congress)
				return err
			},
		})
	}

	return s.apply(ctx, "sessions", muts)
}

// sessionKey is zero padded so the key sort matches numeric order.
func sessionKey(congress int) string {
	return fmt.Sprintf("%05d", congress)
}
