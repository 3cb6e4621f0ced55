package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"congresshub-backend/internal/congressapi"
	"congresshub-backend/internal/model"
)

func TestChamber(t *testing.T) {
	testCases := []struct {
		raw      string
		expected model.Chamber
		ok       bool
	}{
		{"Senate", model.ChamberSenate, true},
		{" house ", model.ChamberHouse, true},
		{"House of Representatives", model.ChamberHouse, true},
		{"JOINT", model.ChamberJoint, true},
		{"upper", "", false},
		{"", "", false},
	}
	for _, tc := range testCases {
		chamber, ok := Chamber(tc.raw)
		require.Equal(t, tc.ok, ok, tc.raw)
		require.Equal(t, tc.expected, chamber, tc.raw)
	}
}

func TestState(t *testing.T) {
	{
		s, ok := State(" ca ")
		require.True(t, ok)
		require.Equal(t, "CA", s)
	}
	for _, bad := range []string{"California", "C", "C4", ""} {
		_, ok := State(bad)
		require.False(t, ok, bad)
	}
}

func TestPartyFallsBackToOther(t *testing.T) {
	require.Equal(t, model.PartyDemocratic, Party("D"))
	require.Equal(t, model.PartyDemocratic, Party("democrat"))
	require.Equal(t, model.PartyRepublican, Party(" Republican "))
	require.Equal(t, model.PartyIndependent, Party("ID"))
	require.Equal(t, model.PartyOther, Party("Libertarian"))
	require.Equal(t, model.PartyOther, Party(""))
}

func TestTimeToleratesSuffixButStoresWithout(t *testing.T) {
	expected := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	for _, raw := range []string{
		"2024-03-15T14:30:00Z",
		"2024-03-15T14:30:00",
		"2024-03-15 14:30:00",
	} {
		parsed, ok := Time(raw)
		require.True(t, ok, raw)
		require.True(t, expected.Equal(parsed), raw)
		require.Equal(t, "2024-03-15 14:30:00", model.FormatTime(parsed))
	}

	_, ok := Time("03/15/2024")
	require.False(t, ok)
}

func TestCommitteeNameCollapsesWhitespace(t *testing.T) {
	require.Equal(t,
		"Committee on the Judiciary",
		CommitteeName("  Committee  on \n the   Judiciary "),
	)
}

func TestMemberAnomalies(t *testing.T) {
	base := congressapi.MemberRecord{
		BioguideId: "A000001",
		FirstName:  "Alice",
		LastName:   "Anderson",
		State:      "VT",
		Party:      "D",
		Chamber:    "Senate",
		Congress:   118,
		IsCurrent:  true,
	}

	{
		member, anomaly := Member(base)
		require.Nil(t, anomaly)
		require.Equal(t, model.ChamberSenate, member.Chamber)
		require.Nil(t, member.District)
	}
	{
		rec := base
		rec.BioguideId = ""
		_, anomaly := Member(rec)
		require.NotNil(t, anomaly)
		require.Equal(t, AnomalyMissingId, anomaly.Kind)
	}
	{
		rec := base
		rec.Chamber = "upper"
		_, anomaly := Member(rec)
		require.NotNil(t, anomaly)
		require.Equal(t, AnomalyUnknownChamber, anomaly.Kind)
	}
	{
		rec := base
		rec.State = "Vermont"
		_, anomaly := Member(rec)
		require.NotNil(t, anomaly)
		require.Equal(t, AnomalyMalformedState, anomaly.Kind)
	}
}

func TestMemberDistrictOnlyForHouse(t *testing.T) {
	district := 3
	rec := congressapi.MemberRecord{
		BioguideId: "B000002",
		FirstName:  "Bob",
		LastName:   "Brown",
		State:      "OH",
		District:   &district,
		Party:      "R",
		Chamber:    "House",
		Congress:   118,
	}

	member, anomaly := Member(rec)
	require.Nil(t, anomaly)
	require.NotNil(t, member.District)
	require.Equal(t, 3, *member.District)

	rec.Chamber = "Senate"
	member, anomaly = Member(rec)
	require.Nil(t, anomaly)
	require.Nil(t, member.District)
}

func TestCommitteeSubcommitteeParent(t *testing.T) {
	rec := congressapi.CommitteeRecord{
		Name:           "Subcommittee on  Antitrust",
		Chamber:        "Senate",
		IsSubcommittee: true,
		ParentName:     "Committee on the Judiciary",
	}

	committee, anomaly := Committee(rec)
	require.Nil(t, anomaly)
	require.Equal(t, model.CommitteeSubcommittee, committee.Type)
	require.NotNil(t, committee.Parent)
	require.Equal(t, model.ChamberSenate, committee.Parent.Chamber)
	require.Equal(t, "Committee on the Judiciary", committee.Parent.Name)
	require.Equal(t, "Subcommittee on Antitrust", committee.Name)
}

func TestHearingBadTimeIsAnAnomaly(t *testing.T) {
	rec := congressapi.HearingRecord{
		UpstreamId: "LC100",
		Congress:   118,
		Title:      "Oversight",
		Scheduled:  "next tuesday",
		Status:     "Scheduled",
	}

	_, anomaly := Hearing(rec)
	require.NotNil(t, anomaly)
	require.Equal(t, AnomalyBadTime, anomaly.Kind)
}

func TestHearingCommitteePairing(t *testing.T) {
	rec := congressapi.HearingRecord{
		UpstreamId:       "LC100",
		Congress:         118,
		Title:            "Oversight",
		Scheduled:        "2024-03-15T10:00:00Z",
		Status:           "scheduled",
		CommitteeName:    "Committee on  Finance",
		CommitteeChamber: "Senate",
		CommitteePrimary: true,
	}

	obs, anomaly := Hearing(rec)
	require.Nil(t, anomaly)
	require.True(t, obs.Primary)
	require.NotNil(t, obs.Committee)
	require.Equal(t, "Committee on Finance", obs.Committee.Name)
	require.Equal(t, model.HearingScheduled, obs.Hearing.Status)
}
