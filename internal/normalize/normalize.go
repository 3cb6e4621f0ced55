package normalize

import (
	"fmt"
	"strings"
	"time"

	"congresshub-backend/internal/congressapi"
	"congresshub-backend/internal/model"
)

// Anomaly describes a source record dropped during normalization. Anomalies
// are counted and summarized in the cycle report, they never abort a stage.
type Anomaly struct {
	Kind   string
	Key    string
	Detail string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s (%s): %s", a.Kind, a.Key, a.Detail)
}

const (
	AnomalyUnknownChamber = "unknown_chamber"
	AnomalyMalformedState = "malformed_state"
	AnomalyBadTime        = "bad_time"
	AnomalyMissingId      = "missing_id"
	AnomalyDanglingRef    = "dangling_reference"
)

// Chamber case-folds free-form chamber text into the canonical set.
func Chamber(raw string) (model.Chamber, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "house", "house of representatives":
		return model.ChamberHouse, true
	case "senate":
		return model.ChamberSenate, true
	case "joint":
		return model.ChamberJoint, true
	}
	return "", false
}

// State trims and uppercases; anything that isn't exactly two letters after
// trimming is rejected.
func State(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 2 {
		return "", false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return "", false
		}
	}
	return s, true
}

var partyTable = map[string]model.Party{
	"democratic":  model.PartyDemocratic,
	"democrat":    model.PartyDemocratic,
	"d":           model.PartyDemocratic,
	"republican":  model.PartyRepublican,
	"r":           model.PartyRepublican,
	"independent": model.PartyIndependent,
	"i":           model.PartyIndependent,
	"id":          model.PartyIndependent,
}

func Party(raw string) model.Party {
	if p, ok := partyTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return p
	}
	return model.PartyOther
}

// timeLayouts accepted on input. A trailing Z is tolerated but the stored
// form is always the canonical suffix-free layout.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	model.TimeLayout,
	model.DateLayout,
}

func Time(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func Date(raw string) (time.Time, bool) {
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// CommitteeName collapses whitespace runs into single spaces so the same
// committee hashes to the same natural key no matter the source formatting.
func CommitteeName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

func CommitteeType(explicit string, isSubcommittee bool) model.CommitteeType {
	if isSubcommittee {
		return model.CommitteeSubcommittee
	}
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "select":
		return model.CommitteeSelect
	case "joint":
		return model.CommitteeJoint
	}
	return model.CommitteeStanding
}

func HearingStatus(raw string) model.HearingStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "held":
		return model.HearingHeld
	case "postponed":
		return model.HearingPostponed
	case "canceled", "cancelled":
		return model.HearingCanceled
	}
	return model.HearingScheduled
}

// Member maps a source member record into the canonical entity. A nil
// anomaly means the record survived.
func Member(rec congressapi.MemberRecord) (model.Member, *Anomaly) {
	if rec.BioguideId == "" {
		return model.Member{}, &Anomaly{
			Kind:   AnomalyMissingId,
			Key:    fmt.Sprintf("%s %s", rec.FirstName, rec.LastName),
			Detail: "member record without a bioguide id",
		}
	}

	chamber, ok := Chamber(rec.Chamber)
	if !ok {
		return model.Member{}, &Anomaly{
			Kind:   AnomalyUnknownChamber,
			Key:    rec.BioguideId,
			Detail: fmt.Sprintf("unknown chamber %q", rec.Chamber),
		}
	}

	state, ok := State(rec.State)
	if !ok {
		return model.Member{}, &Anomaly{
			Kind:   AnomalyMalformedState,
			Key:    rec.BioguideId,
			Detail: fmt.Sprintf("state %q is not a two-letter code", rec.State),
		}
	}

	member := model.Member{
		BioguideId: rec.BioguideId,
		Congress:   rec.Congress,
		GivenName:  strings.TrimSpace(rec.FirstName),
		FamilyName: strings.TrimSpace(rec.LastName),
		Chamber:    chamber,
		State:      state,
		Party:      Party(rec.Party),
		IsCurrent:  rec.IsCurrent,
	}
	if chamber == model.ChamberHouse {
		member.District = rec.District
	}
	if t, ok := Date(rec.TermStart); ok {
		member.TermStart = t
	}
	if t, ok := Date(rec.TermEnd); ok {
		member.TermEnd = t
	}
	return member, nil
}

// Committee maps a source committee record into the canonical entity.
func Committee(rec congressapi.CommitteeRecord) (model.Committee, *Anomaly) {
	name := CommitteeName(rec.Name)
	if name == "" {
		return model.Committee{}, &Anomaly{
			Kind:   AnomalyMissingId,
			Key:    rec.Chamber,
			Detail: "committee record without a name",
		}
	}

	chamber, ok := Chamber(rec.Chamber)
	if !ok {
		return model.Committee{}, &Anomaly{
			Kind:   AnomalyUnknownChamber,
			Key:    name,
			Detail: fmt.Sprintf("unknown chamber %q", rec.Chamber),
		}
	}

	committee := model.Committee{
		Chamber:            chamber,
		Name:               name,
		DisplayName:        strings.TrimSpace(rec.Name),
		Type:               CommitteeType(rec.CommitteeType, rec.IsSubcommittee),
		Jurisdiction:       strings.TrimSpace(rec.Jurisdiction),
		IsActive:           true,
		HearingsUrl:        rec.HearingsUrl,
		MembersUrl:         rec.MembersUrl,
		OfficialWebsiteUrl: rec.OfficialUrl,
	}
	if rec.IsSubcommittee && rec.ParentName != "" {
		// a subcommittee's parent is always in the same chamber
		committee.Parent = &model.CommitteeKey{
			Chamber: chamber,
			Name:    CommitteeName(rec.ParentName),
		}
	}
	return committee, nil
}

// HearingObservation keeps the (hearing, committee) pairing alive through
// normalization so the reconciler can pick the primary committee.
type HearingObservation struct {
	Hearing   model.Hearing
	Committee *model.CommitteeKey
	Primary   bool
}

func Hearing(rec congressapi.HearingRecord) (HearingObservation, *Anomaly) {
	if rec.UpstreamId == "" {
		return HearingObservation{}, &Anomaly{
			Kind:   AnomalyMissingId,
			Key:    rec.Title,
			Detail: "hearing record without an upstream id",
		}
	}

	hearing := model.Hearing{
		Congress:   rec.Congress,
		UpstreamId: rec.UpstreamId,
		Title:      strings.TrimSpace(rec.Title),
		Location:   strings.TrimSpace(rec.Location),
		Room:       strings.TrimSpace(rec.Room),
		Status:     HearingStatus(rec.Status),
	}
	if rec.Scheduled != "" {
		t, ok := Time(rec.Scheduled)
		if !ok {
			return HearingObservation{}, &Anomaly{
				Kind:   AnomalyBadTime,
				Key:    rec.UpstreamId,
				Detail: fmt.Sprintf("unparseable hearing time %q", rec.Scheduled),
			}
		}
		hearing.ScheduledAt = t
	}

	obs := HearingObservation{Hearing: hearing, Primary: rec.CommitteePrimary}
	if rec.CommitteeName != "" {
		chamber, ok := Chamber(rec.CommitteeChamber)
		if !ok {
			return HearingObservation{}, &Anomaly{
				Kind:   AnomalyUnknownChamber,
				Key:    rec.UpstreamId,
				Detail: fmt.Sprintf("hearing committee with unknown chamber %q", rec.CommitteeChamber),
			}
		}
		obs.Committee = &model.CommitteeKey{
			Chamber: chamber,
			Name:    CommitteeName(rec.CommitteeName),
		}
	}
	return obs, nil
}

func Session(rec congressapi.SessionRecord) (model.Session, *Anomaly) {
	if rec.Congress <= 0 {
		return model.Session{}, &Anomaly{
			Kind:   AnomalyMissingId,
			Key:    fmt.Sprint(rec.Congress),
			Detail: "session record without a congress number",
		}
	}
	return model.Session{
		Congress:  rec.Congress,
		StartYear: rec.StartYear,
		EndYear:   rec.EndYear,
		IsCurrent: rec.IsCurrent,
	}, nil
}
