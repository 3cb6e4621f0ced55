package store

import (
	"context"
	"database/sql"

	"congresshub-backend/internal/db"
	"congresshub-backend/internal/model"
	"congresshub-backend/internal/reconcile"
)

// LoadCommittees loads the whole committee table. Committees are not scoped
// to a congress, the roster persists across sessions.
func (s Store) LoadCommittees(ctx context.Context) (map[model.CommitteeKey]reconcile.Stored[model.Committee], error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chamber, canonical_name, display_name, parent_chamber, parent_name,
			committee_type, jurisdiction, is_active,
			hearings_url, members_url, official_website_url, last_seen_cycle
		FROM committees
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.CommitteeKey]reconcile.Stored[model.Committee]{}
	for rows.Next() {
		var committee model.Committee
		var parentChamber, parentName sql.NullString
		var jurisdiction, hearingsUrl, membersUrl, websiteUrl sql.NullString
		var isActive, lastSeen int
		err = rows.Scan(
			&committee.Chamber, &committee.Name, &committee.DisplayName,
			&parentChamber, &parentName, &committee.Type, &jurisdiction, &isActive,
			&hearingsUrl, &membersUrl, &websiteUrl, &lastSeen,
		)
		if err != nil {
			return nil, err
		}
		if parentChamber.Valid && parentName.Valid {
			committee.Parent = &model.CommitteeKey{
				Chamber: model.Chamber(parentChamber.String),
				Name:    parentName.String,
			}
		}
		committee.Jurisdiction = jurisdiction.String
		committee.HearingsUrl = hearingsUrl.String
		committee.MembersUrl = membersUrl.String
		committee.OfficialWebsiteUrl = websiteUrl.String
		committee.IsActive = isActive != 0
		out[committee.Key()] = reconcile.Stored[model.Committee]{
			Entity:        committee,
			LastSeenCycle: lastSeen,
		}
	}
	return out, rows.Err()
}

func (s Store) ApplyCommittees(ctx context.Context, cycle int, plan reconcile.Plan[model.Committee]) (Report, error) {
	var muts []mutation
	upsert := func(op opKind, committee model.Committee) mutation {
		var parentChamber, parentName any
		if committee.Parent != nil {
			parentChamber = string(committee.Parent.Chamber)
			parentName = committee.Parent.Name
		}
		return mutation{
			key: committee.Key().String(),
			op:  op,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					INSERT INTO committees
						(chamber, canonical_name, display_name, parent_chamber, parent_name,
						committee_type, jurisdiction, is_active,
						hearings_url, members_url, official_website_url, last_seen_cycle)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (chamber, canonical_name) DO UPDATE SET
						display_name = excluded.display_name,
						parent_chamber = excluded.parent_chamber,
						parent_name = excluded.parent_name,
						committee_type = excluded.committee_type,
						jurisdiction = excluded.jurisdiction,
						is_active = excluded.is_active,
						hearings_url = excluded.hearings_url,
						members_url = excluded.members_url,
						official_website_url = excluded.official_website_url,
						last_seen_cycle = excluded.last_seen_cycle,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
				`,
					string(committee.Chamber), committee.Name, committee.DisplayName,
					parentChamber, parentName, string(committee.Type),
					nullString(committee.Jurisdiction), boolInt(committee.IsActive),
					nullString(committee.HearingsUrl), nullString(committee.MembersUrl),
					nullString(committee.OfficialWebsiteUrl), cycle,
				)
				return err
			},
		}
	}

	for _, committee := range plan.Creates {
		muts = append(muts, upsert(opCreate, committee))
	}
	for _, committee := range plan.Updates {
		muts = append(muts, upsert(opUpdate, committee))
	}
	for _, committee := range plan.Touches {
		key := committee.Key()
		muts = append(muts, mutation{
			key: key.String(),
			op:  opTouch,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE committees SET last_seen_cycle = ?
					WHERE chamber = ? AND canonical_name = ?
				`, cycle, string(key.Chamber), key.Name)
				return err
			},
		})
	}
	for _, committee := range plan.Deactivates {
		key := committee.Key()
		muts = append(muts, mutation{
			key: key.String(),
			op:  opDeactivate,
			exec: func(ctx context.Context, q db.Querier) error {
				_, err := q.ExecContext(ctx, `
					UPDATE committees SET is_active = 0,
						updated_at = strftime('%Y-%m-%d %H:%M:%S', 'now')
					WHERE chamber = ? AND canonical_name = ?
				`, string(key.Chamber), key.Name)
				return err
			},
		})
	}

	return s.apply(ctx, "committees", muts)
}
