package reconcile

import (
	"congresshub-backend/internal/model"
	"congresshub-backend/internal/telemetry"
)

const (
	report_membership_dangling = "membership.dangling-endpoint"
	report_membership_conflict = "membership.leadership-conflict"
)

// EndpointSet is the pending-plus-store view of members and committees a
// membership may legally reference.
type EndpointSet struct {
	Members    map[model.MemberKey]bool
	Committees map[model.CommitteeKey]bool
}

// Memberships validates relationship invariants and computes the mutation
// set. Memberships referencing an endpoint outside the pending-plus-store
// set are dropped with an error event. Conflicting leadership claims (two
// current Chairs, or two current Ranking Members, for one committee) keep
// the record later in the stream; the earlier one is downgraded to plain
// membership with a warning. Stored current holders displaced by the
// stream are downgraded the same way, in the same plan, so a handover
// never leaves a committee with two current Chairs.
func Memberships(
	incoming []model.Membership,
	existing map[model.MembershipKey]Stored[model.Membership],
	endpoints EndpointSet,
	tel telemetry.API,
	opts Options,
) (plan Plan[model.Membership], dropped []model.Membership) {
	valid := make([]model.Membership, 0, len(incoming))
	for _, m := range incoming {
		if !endpoints.Members[m.Member] || !endpoints.Committees[m.Committee] {
			tel.ReportBroken(report_membership_dangling, m.Key().String())
			dropped = append(dropped, m)
			continue
		}
		valid = append(valid, m)
	}

	valid = resolveLeadershipConflicts(valid, existing, tel)

	plan = Entities(
		valid,
		existing,
		model.Membership.Key,
		membershipsEqual,
		func(m model.Membership) bool { return m.IsCurrent },
		opts,
	)
	return plan, dropped
}

// resolveLeadershipConflicts enforces at most one current Chair and one
// current Ranking Member per committee, across the stream and the store.
// Later in stream wins; a stored holder the new winner displaces is
// re-emitted with a plain membership role so it becomes an update.
func resolveLeadershipConflicts(
	incoming []model.Membership,
	existing map[model.MembershipKey]Stored[model.Membership],
	tel telemetry.API,
) []model.Membership {
	type claim struct {
		committee model.CommitteeKey
		role      model.Role
	}

	holder := map[claim]int{}
	out := make([]model.Membership, len(incoming))
	copy(out, incoming)

	for i, m := range out {
		if !m.IsCurrent {
			continue
		}
		if m.Role != model.RoleChair && m.Role != model.RoleRankingMember {
			continue
		}

		c := claim{committee: m.Committee, role: m.Role}
		if prev, taken := holder[c]; taken {
			tel.ReportWarning(
				report_membership_conflict,
				string(m.Role),
				out[prev].Key().String(),
				m.Key().String(),
			)
			out[prev].Role = model.RoleMember
		}
		holder[c] = i
	}

	observed := map[model.MembershipKey]bool{}
	for _, m := range out {
		observed[m.Key()] = true
	}

	for key, stored := range existing {
		m := stored.Entity
		if !m.IsCurrent {
			continue
		}
		if m.Role != model.RoleChair && m.Role != model.RoleRankingMember {
			continue
		}
		if observed[key] {
			// re-observed this cycle, the stream's record governs
			continue
		}
		winner, taken := holder[claim{committee: m.Committee, role: m.Role}]
		if !taken || out[winner].Member == m.Member {
			continue
		}
		tel.ReportWarning(
			report_membership_conflict,
			string(m.Role),
			key.String(),
			out[winner].Key().String(),
		)
		m.Role = model.RoleMember
		out = append(out, m)
	}

	return out
}

func membershipsEqual(a, b model.Membership) bool {
	return a.Member == b.Member &&
		a.Committee == b.Committee &&
		a.Role == b.Role &&
		a.IsCurrent == b.IsCurrent &&
		a.TermStart.Equal(b.TermStart) &&
		a.TermEnd.Equal(b.TermEnd)
}
