package model

import (
	"fmt"
	"time"
)

// Stored timestamps use a single canonical layout, UTC with no timezone
// suffix. A trailing `Z` is accepted on input but never written back out.
const TimeLayout = "2006-01-02 15:04:05"

// DateLayout is the canonical layout for date-precision fields like term
// bounds.
const DateLayout = "2006-01-02"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseStoredTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}

type Chamber string

const (
	ChamberHouse  Chamber = "House"
	ChamberSenate Chamber = "Senate"
	ChamberJoint  Chamber = "Joint"
)

type Party string

const (
	PartyDemocratic  Party = "Democratic"
	PartyRepublican  Party = "Republican"
	PartyIndependent Party = "Independent"
	PartyOther       Party = "Other"
)

type CommitteeType string

const (
	CommitteeStanding     CommitteeType = "Standing"
	CommitteeSelect       CommitteeType = "Select"
	CommitteeJoint        CommitteeType = "Joint"
	CommitteeSubcommittee CommitteeType = "Subcommittee"
)

type Role string

const (
	RoleChair         Role = "Chair"
	RoleRankingMember Role = "Ranking Member"
	RoleViceChair     Role = "Vice Chair"
	RoleMember        Role = "Member"
)

type HearingStatus string

const (
	HearingScheduled HearingStatus = "Scheduled"
	HearingHeld      HearingStatus = "Held"
	HearingPostponed HearingStatus = "Postponed"
	HearingCanceled  HearingStatus = "Canceled"
)

// MemberKey is the natural key for a member: members are keyed per congress,
// a member who changes chamber between congresses is two rows.
type MemberKey struct {
	BioguideId string
	Congress   int
}

func (k MemberKey) String() string {
	return fmt.Sprintf("%s/%d", k.BioguideId, k.Congress)
}

type CommitteeKey struct {
	Chamber Chamber
	Name    string
}

func (k CommitteeKey) String() string {
	return fmt.Sprintf("%s/%s", k.Chamber, k.Name)
}

type MembershipKey struct {
	Member    MemberKey
	Committee CommitteeKey
}

func (k MembershipKey) String() string {
	return fmt.Sprintf("%s->%s", k.Member, k.Committee)
}

type HearingKey struct {
	Congress   int
	UpstreamId string
}

func (k HearingKey) String() string {
	return fmt.Sprintf("%d/%s", k.Congress, k.UpstreamId)
}

type Member struct {
	BioguideId string
	Congress   int
	GivenName  string
	FamilyName string
	Chamber    Chamber
	State      string
	// District is nil for senators.
	District  *int
	Party     Party
	TermStart time.Time
	TermEnd   time.Time
	IsCurrent bool
}

func (m Member) Key() MemberKey {
	return MemberKey{BioguideId: m.BioguideId, Congress: m.Congress}
}

type Committee struct {
	Chamber     Chamber
	Name        string
	DisplayName string
	// Parent is set for subcommittees, referencing the parent's natural key.
	Parent             *CommitteeKey
	Type               CommitteeType
	Jurisdiction       string
	IsActive           bool
	HearingsUrl        string
	MembersUrl         string
	OfficialWebsiteUrl string
}

func (c Committee) Key() CommitteeKey {
	return CommitteeKey{Chamber: c.Chamber, Name: c.Name}
}

type Membership struct {
	Member    MemberKey
	Committee CommitteeKey
	Role      Role
	IsCurrent bool
	TermStart time.Time
	TermEnd   time.Time
}

func (m Membership) Key() MembershipKey {
	return MembershipKey{Member: m.Member, Committee: m.Committee}
}

type Hearing struct {
	Congress    int
	UpstreamId  string
	Title       string
	ScheduledAt time.Time
	Location    string
	Room        string
	// PrimaryCommittee is nil only when no source record named a committee.
	PrimaryCommittee *CommitteeKey
	Status           HearingStatus
}

func (h Hearing) Key() HearingKey {
	return HearingKey{Congress: h.Congress, UpstreamId: h.UpstreamId}
}

type Session struct {
	Congress  int
	StartYear int
	EndYear   int
	IsCurrent bool
}
