package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"congresshub-backend/internal/model"
	"congresshub-backend/internal/telemetry"
)

func membership(bioguide string, committee model.CommitteeKey, role model.Role) model.Membership {
	return model.Membership{
		Member:    model.MemberKey{BioguideId: bioguide, Congress: 118},
		Committee: committee,
		Role:      role,
		IsCurrent: true,
	}
}

func endpointsFor(memberships ...model.Membership) EndpointSet {
	set := EndpointSet{
		Members:    map[model.MemberKey]bool{},
		Committees: map[model.CommitteeKey]bool{},
	}
	for _, m := range memberships {
		set.Members[m.Member] = true
		set.Committees[m.Committee] = true
	}
	return set
}

func TestMembershipsDropDanglingEndpoints(t *testing.T) {
	known := membership("A000001", judiciary, model.RoleMember)
	unknownMember := membership("Z999999", judiciary, model.RoleMember)

	tel := &telemetry.RecordAPI{}
	endpoints := endpointsFor(known)

	plan, dropped := Memberships(
		[]model.Membership{known, unknownMember},
		nil, endpoints, tel,
		Options{Cycle: 1, GraceCycles: 2, StreamComplete: true},
	)

	require.Len(t, plan.Creates, 1)
	require.Equal(t, "A000001", plan.Creates[0].Member.BioguideId)
	require.Len(t, dropped, 1)
	require.Equal(t, "Z999999", dropped[0].Member.BioguideId)
	require.Equal(t, 1, tel.CountByLevel("broken"))
}

func TestMembershipsChairConflictLaterWins(t *testing.T) {
	first := membership("A000001", judiciary, model.RoleChair)
	second := membership("A000002", judiciary, model.RoleChair)

	tel := &telemetry.RecordAPI{}
	endpoints := endpointsFor(first, second)

	plan, _ := Memberships(
		[]model.Membership{first, second},
		nil, endpoints, tel,
		Options{Cycle: 1, GraceCycles: 2, StreamComplete: true},
	)

	require.Len(t, plan.Creates, 2)
	byMember := map[string]model.Role{}
	for _, m := range plan.Creates {
		byMember[m.Member.BioguideId] = m.Role
	}
	require.Equal(t, model.RoleMember, byMember["A000001"])
	require.Equal(t, model.RoleChair, byMember["A000002"])
	require.Equal(t, 1, tel.CountByLevel("warning"))
}

func TestMembershipsChairHandoverDowngradesStoredHolder(t *testing.T) {
	former := membership("A000001", judiciary, model.RoleChair)
	successor := membership("A000002", judiciary, model.RoleChair)

	existing := map[model.MembershipKey]Stored[model.Membership]{
		former.Key(): {Entity: former, LastSeenCycle: 1},
	}
	tel := &telemetry.RecordAPI{}
	endpoints := endpointsFor(former, successor)

	plan, _ := Memberships(
		[]model.Membership{successor},
		existing, endpoints, tel,
		Options{Cycle: 2, GraceCycles: 2, StreamComplete: true},
	)

	// the new chair is created and the displaced holder stays a current
	// plain member, never a second chair lingering until the grace window
	require.Len(t, plan.Creates, 1)
	require.Equal(t, "A000002", plan.Creates[0].Member.BioguideId)
	require.Equal(t, model.RoleChair, plan.Creates[0].Role)

	require.Len(t, plan.Updates, 1)
	require.Equal(t, "A000001", plan.Updates[0].Member.BioguideId)
	require.Equal(t, model.RoleMember, plan.Updates[0].Role)
	require.True(t, plan.Updates[0].IsCurrent)

	require.Empty(t, plan.Deactivates)
	require.Equal(t, 1, tel.CountByLevel("warning"))
}

func TestMembershipsReobservedChairIsNoConflict(t *testing.T) {
	chair := membership("A000001", judiciary, model.RoleChair)

	existing := map[model.MembershipKey]Stored[model.Membership]{
		chair.Key(): {Entity: chair, LastSeenCycle: 1},
	}
	tel := &telemetry.RecordAPI{}

	plan, _ := Memberships(
		[]model.Membership{chair},
		existing, endpointsFor(chair), tel,
		Options{Cycle: 2, GraceCycles: 2, StreamComplete: true},
	)

	require.Len(t, plan.Touches, 1)
	require.Empty(t, plan.Updates)
	require.Equal(t, 0, tel.CountByLevel("warning"))
}

func TestMembershipsSeparateRolesDontConflict(t *testing.T) {
	chair := membership("A000001", judiciary, model.RoleChair)
	ranking := membership("A000002", judiciary, model.RoleRankingMember)

	tel := &telemetry.RecordAPI{}
	plan, _ := Memberships(
		[]model.Membership{chair, ranking},
		nil, endpointsFor(chair, ranking), tel,
		Options{Cycle: 1, GraceCycles: 2, StreamComplete: true},
	)

	require.Len(t, plan.Creates, 2)
	require.Equal(t, 0, tel.CountByLevel("warning"))
}
