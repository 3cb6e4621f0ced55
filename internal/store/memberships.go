package store

import (
	"context"
	"database/sql"

	"congresshub-backend/internal/db"
	"congresshub-backend/internal/model"
	"congresshub-backend/internal/reconcile"
)

func (s Store) LoadMemberships(ctx context.Context, congress int) (map[model.MembershipKey]reconcile.Stored[model.Membership], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bioguide_id, congress_session, committee_chamber, committee_name,
			role, is_current, term_start, term_end, last_seen_cycle
		FROM committee_memberships
		WHERE congress_session = ?
	`, congress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.MembershipKey]reconcile.Stored[model.Membership]{}
	for rows.Next() {
		var membership model.Membership
		var termStart, termEnd sql.NullString
		var isCurrent, lastSeen int
		err = rows.Scan(
			&membership.Member.BioguideId, &membership.Member.Congress,
			&membership.Committee.Chamber, &membership.Committee.Name,
			&membership.Role, &isCurrent, &termStart, &termEnd, &lastSeen,
		)
		if err != nil {
			return nil, err
		}
		membership.IsCurrent = isCurrent != 0
		membership.TermStart = scanNullableDate(termStart)
		membership.TermEnd = scanNullableDate(termEnd)
		out[membership.Key()] = reconcile.Stored[model.Membership]{
			Entity:        membership,
			LastSeenCycle: lastSeen,
		}
	}
	return out, rows.Err()
}

func (s Store) ApplyMemberships(ctx context.Context, cycle int, plan reconcile.Plan[model.Membership]) (Report, error) {
	var muts []mutation
	upsert := func(op opKind, membership model.Membership) mutation {
		return mutation{
			key: membership.Key().String(),
			op:  op,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					INSERT INTO committee_memberships
						(bioguide_id, congress_session, committee_chamber, committee_name,
						role, is_current, term_start, term_end, last_seen_cycle)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (bioguide_id, congress_session, committee_chamber, committee_name)
					DO UPDATE SET
						role = excluded.role,
						is_current = excluded.is_current,
						term_start = excluded.term_start,
						term_end = excluded.term_end,
						last_seen_cycle = excluded.last_seen_cycle,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
				`,
					membership.Member.BioguideId, membership.Member.Congress,
					string(membership.Committee.Chamber), membership.Committee.Name,
					string(membership.Role), boolInt(membership.IsCurrent),
					nullDate(membership.TermStart), nullDate(membership.TermEnd), cycle,
				)
				return err
			},
		}
	}

	for _, membership := range plan.Creates {
		muts = append(muts, upsert(opCreate, membership))
	}
	for _, membership := range plan.Updates {
		muts = append(muts, upsert(opUpdate, membership))
	}
	for _, membership := range plan.Touches {
		key := membership.Key()
		muts = append(muts, mutation{
			key: key.String(),
			op:  opTouch,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE committee_memberships SET last_seen_cycle = ?
					WHERE bioguide_id = ? AND congress_session = ?
						AND committee_chamber = ? AND committee_name = ?
				`, cycle, key.Member.BioguideId, key.Member.Congress,
					string(key.Committee.Chamber), key.Committee.Name)
				return err
			},
		})
	}
	for _, membership := range plan.Deactivates {
		key := membership.Key()
		muts = append(muts, mutation{
			key: key.String(),
			op:  opDeactivate,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE committee_memberships SET is_current = 0,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
					WHERE bioguide_id = ? AND congress_session = ?
						AND committee_chamber = ? AND committee_name = ?
				`, key.Member.BioguideId, key.Member.Congress,
					string(key.Committee.Chamber), key.Committee.Name)
				return err
			},
		})
	}

	return s.apply(ctx, "memberships", muts)
}
