package store

import (
	"context"
	"database/sql"

	"congresshub-backend/internal/db"
	"congresshub-backend/internal/model"
	"congresshub-backend/internal/reconcile"
)

func (s Store) LoadHearings(ctx context.Context, congress int) (map[model.HearingKey]reconcile.Stored[model.Hearing], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT congress_session, upstream_id, title, scheduled_at, location, room,
			primary_committee_chamber, primary_committee_name, status, last_seen_cycle
		FROM hearings
		WHERE congress_session = ?
	`, congress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.HearingKey]reconcile.Stored[model.Hearing]{}
	for rows.Next() {
		var hearing model.Hearing
		var title, scheduledAt, location, room sql.NullString
		var primaryChamber, primaryName sql.NullString
		var lastSeen int
		err = rows.Scan(
			&hearing.Congress, &hearing.UpstreamId, &title, &scheduledAt,
			&location, &room, &primaryChamber, &primaryName, &hearing.Status, &lastSeen,
		)
		if err != nil {
			return nil, err
		}
		hearing.Title = title.String
		hearing.ScheduledAt = scanNullableTime(scheduledAt)
		hearing.Location = location.String
		hearing.Room = room.String
		if primaryChamber.Valid && primaryName.Valid {
			hearing.PrimaryCommittee = &model.CommitteeKey{
				Chamber: model.Chamber(primaryChamber.String),
				Name:    primaryName.String,
			}
		}
		out[hearing.Key()] = reconcile.Stored[model.Hearing]{
			Entity:        hearing,
			LastSeenCycle: lastSeen,
		}
	}
	return out, rows.Err()
}

func (s Store) ApplyHearings(ctx context.Context, cycle int, plan reconcile.Plan[model.Hearing]) (Report, error) {
	var muts []mutation
	upsert := func(op opKind, hearing model.Hearing) mutation {
		var primaryChamber, primaryName any
		if hearing.PrimaryCommittee != nil {
			primaryChamber = string(hearing.PrimaryCommittee.Chamber)
			primaryName = hearing.PrimaryCommittee.Name
		}
		return mutation{
			key: hearing.Key().String(),
			op:  op,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					INSERT INTO hearings
						(congress_session, upstream_id, title, scheduled_at, location, room,
						primary_committee_chamber, primary_committee_name, status, last_seen_cycle)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (congress_session, upstream_id) DO UPDATE SET
						title = excluded.title,
						scheduled_at = excluded.scheduled_at,
						location = excluded.location,
						room = excluded.room,
						primary_committee_chamber = excluded.primary_committee_chamber,
						primary_committee_name = excluded.primary_committee_name,
						status = excluded.status,
						last_seen_cycle = excluded.last_seen_cycle,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
				`,
					hearing.Congress, hearing.UpstreamId, nullString(hearing.Title),
					nullTime(hearing.ScheduledAt), nullString(hearing.Location),
					nullString(hearing.Room), primaryChamber, primaryName,
					string(hearing.Status), cycle,
				)
				return err
			},
		}
	}

	for _, hearing := range plan.Creates {
		muts = append(muts, upsert(opCreate, hearing))
	}
	for _, hearing := range plan.Updates {
		muts = append(muts, upsert(opUpdate, hearing))
	}
	for _, hearing := range plan.Touches {
		key := hearing.Key()
		muts = append(muts, mutation{
			key: key.String(),
			op:  opTouch,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE hearings SET last_seen_cycle = ?
					WHERE congress_session = ? AND upstream_id = ?
				`, cycle, key.Congress, key.UpstreamId)
				return err
			},
		})
	}
	// a hearing unobserved past the grace window is treated as withdrawn
	// upstream, its status moves to Canceled
	for _, hearing := range plan.Deactivates {
		key := hearing.Key()
		muts = append(muts, mutation{
			key: key.String(),
			op:  opDeactivate,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE hearings SET status = ?,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
					WHERE congress_session = ? AND upstream_id = ?
				`, string(model.HearingCanceled), key.Congress, key.UpstreamId)
				return err
			},
		})
	}

	return s.apply(ctx, "hearings", muts)
}
