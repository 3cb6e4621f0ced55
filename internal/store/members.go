package store

import (
	"context"
	"database/sql"

	"congresshub-backend/internal/db"
	"congresshub-backend/internal/model"
	"congresshub-backend/internal/reconcile"
)

func (s Store) LoadMembers(ctx context.Context, congress int) (map[model.MemberKey]reconcile.Stored[model.Member], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bioguide_id, congress_session, given_name, family_name,
			chamber, state, district, party, term_start, term_end,
			is_current, last_seen_cycle
		FROM members
		WHERE congress_session = ?
	`, congress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.MemberKey]reconcile.Stored[model.Member]{}
	for rows.Next() {
		var member model.Member
		var district sql.NullInt64
		var termStart, termEnd sql.NullString
		var isCurrent, lastSeen int
		err = rows.Scan(
			&member.BioguideId, &member.Congress, &member.GivenName, &member.FamilyName,
			&member.Chamber, &member.State, &district, &member.Party, &termStart, &termEnd,
			&isCurrent, &lastSeen,
		)
		if err != nil {
			return nil, err
		}
		if district.Valid {
			d := int(district.Int64)
			member.District = &d
		}
		member.TermStart = scanNullableDate(termStart)
		member.TermEnd = scanNullableDate(termEnd)
		member.IsCurrent = isCurrent != 0
		out[member.Key()] = reconcile.Stored[model.Member]{
			Entity:        member,
			LastSeenCycle: lastSeen,
		}
	}
	return out, rows.Err()
}

func (s Store) ApplyMembers(ctx context.Context, cycle int, plan reconcile.Plan[model.Member]) (Report, error) {
	var muts []mutation
	upsert := func(op opKind, member model.Member) mutation {
		return mutation{
			key: member.Key().String(),
			op:  op,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					INSERT INTO members
						(bioguide_id, congress_session, given_name, family_name,
						chamber, state, district, party, term_start, term_end,
						is_current, last_seen_cycle)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (bioguide_id, congress_session) DO UPDATE SET
						given_name = excluded.given_name,
						family_name = excluded.family_name,
						chamber = excluded.chamber,
						state = excluded.state,
						district = excluded.district,
						party = excluded.party,
						term_start = excluded.term_start,
						term_end = excluded.term_end,
						is_current = excluded.is_current,
						last_seen_cycle = excluded.last_seen_cycle,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
				`,
					member.BioguideId, member.Congress, member.GivenName, member.FamilyName,
					string(member.Chamber), member.State, nullInt(member.District),
					string(member.Party), nullDate(member.TermStart), nullDate(member.TermEnd),
					boolInt(member.IsCurrent), cycle,
				)
				return err
			},
		}
	}

	for _, member := range plan.Creates {
		muts = append(muts, upsert(opCreate, member))
	}
	for _, member := range plan.Updates {
		muts = append(muts, upsert(opUpdate, member))
	}
	for _, member := range plan.Touches {
		key := member.Key()
		muts = append(muts, mutation{
			key: key.String(),
			op:  opTouch,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE members SET last_seen_cycle = ?
					WHERE bioguide_id = ? AND congress_session = ?
				`, cycle, key.BioguideId, key.Congress)
				return err
			},
		})
	}
	for _, member := range plan.Deactivates {
		key := member.Key()
		muts = append(muts, mutation{
			key: key.String(),
			op:  opDeactivate,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE members SET is_current = 0,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
					WHERE bioguide_id = ? AND congress_session = ?
				`, key.BioguideId, key.Congress)
				return err
			},
		})
	}

	return s.apply(ctx, "members", muts)
}
