package reconcile

import (
	"congresshub-backend/internal/model"
)

func Members(
	incoming []model.Member,
	existing map[model.MemberKey]Stored[model.Member],
	opts Options,
) Plan[model.Member] {
	return Entities(
		incoming,
		existing,
		model.Member.Key,
		membersEqual,
		func(m model.Member) bool { return m.IsCurrent },
		opts,
	)
}

func membersEqual(a, b model.Member) bool {
	return a.BioguideId == b.BioguideId &&
		a.Congress == b.Congress &&
		a.GivenName == b.GivenName &&
		a.FamilyName == b.FamilyName &&
		a.Chamber == b.Chamber &&
		a.State == b.State &&
		intPtrEqual(a.District, b.District) &&
		a.Party == b.Party &&
		a.TermStart.Equal(b.TermStart) &&
		a.TermEnd.Equal(b.TermEnd) &&
		a.IsCurrent == b.IsCurrent
}

func Committees(
	incoming []model.Committee,
	existing map[model.CommitteeKey]Stored[model.Committee],
	opts Options,
) Plan[model.Committee] {
	return Entities(
		incoming,
		existing,
		model.Committee.Key,
		committeesEqual,
		func(c model.Committee) bool { return c.IsActive },
		opts,
	)
}

func committeesEqual(a, b model.Committee) bool {
	return a.Chamber == b.Chamber &&
		a.Name == b.Name &&
		a.DisplayName == b.DisplayName &&
		committeeKeyPtrEqual(a.Parent, b.Parent) &&
		a.Type == b.Type &&
		a.Jurisdiction == b.Jurisdiction &&
		a.IsActive == b.IsActive &&
		a.HearingsUrl == b.HearingsUrl &&
		a.MembersUrl == b.MembersUrl &&
		a.OfficialWebsiteUrl == b.OfficialWebsiteUrl
}

// Sessions never deactivate, a past congress stays on the books.
func Sessions(
	incoming []model.Session,
	existing map[int]Stored[model.Session],
	opts Options,
) Plan[model.Session] {
	opts.StreamComplete = false
	return Entities(
		incoming,
		existing,
		func(s model.Session) int { return s.Congress },
		func(a, b model.Session) bool { return a == b },
		func(s model.Session) bool { return true },
		opts,
	)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
