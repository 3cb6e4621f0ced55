package reconcile

import (
	"fmt"
	"regexp"

	"congresshub-backend/internal/model"
	"congresshub-backend/internal/normalize"
	"congresshub-backend/internal/scrapers/leadership"
	"congresshub-backend/internal/telemetry"
	"congresshub-backend/lib/textutil"
)

const (
	report_leadership_unknown_chamber   = "leadership.unknown-chamber"
	report_leadership_unknown_committee = "leadership.unknown-committee"
	report_leadership_unknown_member    = "leadership.unknown-member"
)

// scraped names never match the API's byte for byte, so matching runs on
// Jaro-Winkler similarity over normalized forms
const (
	committeeMatchThreshold = 0.88
	memberMatchThreshold    = 0.85
)

// ResolveLeadership turns scraped leadership tuples into Chair and Ranking
// Member memberships, matching committee and person names tolerantly
// against the entities known this cycle. Tuples that can't be resolved are
// skipped with a warning; this adapter only ever adds leadership roles the
// JSON API omits.
//
// The second return value carries official website urls the scrape found
// for matched committees, keyed by committee.
func ResolveLeadership(
	records []leadership.Record,
	members []model.Member,
	committees []model.Committee,
	congress int,
	tel telemetry.API,
) ([]model.Membership, map[model.CommitteeKey]string) {
	committeeNames := map[model.Chamber][]string{}
	for _, c := range committees {
		committeeNames[c.Chamber] = append(committeeNames[c.Chamber], c.Name)
	}

	memberNames := map[model.Chamber][]string{}
	memberByName := map[model.Chamber]map[string]model.MemberKey{}
	for _, m := range members {
		if m.Congress != congress {
			continue
		}
		full := fmt.Sprintf("%s %s", m.GivenName, m.FamilyName)
		memberNames[m.Chamber] = append(memberNames[m.Chamber], full)
		if memberByName[m.Chamber] == nil {
			memberByName[m.Chamber] = map[string]model.MemberKey{}
		}
		memberByName[m.Chamber][full] = m.Key()
	}

	var out []model.Membership
	officialUrls := map[model.CommitteeKey]string{}
	for _, record := range records {
		chamber, ok := normalize.Chamber(record.Chamber)
		if !ok {
			tel.ReportWarning(report_leadership_unknown_chamber, record.Chamber, record.CommitteeName)
			continue
		}

		committeeKey, ok := matchCommittee(record.CommitteeName, chamber, committeeNames)
		if !ok {
			tel.ReportWarning(report_leadership_unknown_committee, record.CommitteeName, string(chamber))
			continue
		}
		if record.OfficialUrl != "" {
			officialUrls[committeeKey] = record.OfficialUrl
		}

		// joint committees draw leadership from both chambers
		memberChambers := []model.Chamber{chamber}
		if chamber == model.ChamberJoint {
			memberChambers = []model.Chamber{model.ChamberHouse, model.ChamberSenate}
		}

		roles := []struct {
			name string
			role model.Role
		}{
			{record.Chair, model.RoleChair},
			{record.RankingMember, model.RoleRankingMember},
		}
		for _, r := range roles {
			if r.name == "" {
				continue
			}
			memberKey, ok := matchMember(r.name, memberChambers, memberNames, memberByName)
			if !ok {
				tel.ReportWarning(report_leadership_unknown_member, r.name, record.CommitteeName)
				continue
			}
			out = append(out, model.Membership{
				Member:    memberKey,
				Committee: committeeKey,
				Role:      r.role,
				IsCurrent: true,
			})
		}
	}

	return out, officialUrls
}

// committeeNoise strips the boilerplate words committee names disagree on,
// "Judiciary Committee" and "Committee on the Judiciary" share a stem.
var committeeNoise = regexp.MustCompile(`(?i)\b(committee|subcommittee|on|the)\b`)

func committeeStem(name string) string {
	return committeeNoise.ReplaceAllString(name, " ")
}

func matchCommittee(
	name string,
	chamber model.Chamber,
	names map[model.Chamber][]string,
) (model.CommitteeKey, bool) {
	canonical := normalize.CommitteeName(name)
	stems := make([]string, len(names[chamber]))
	byStem := map[string]string{}
	for i, candidate := range names[chamber] {
		if candidate == canonical {
			return model.CommitteeKey{Chamber: chamber, Name: candidate}, true
		}
		stem := committeeStem(candidate)
		stems[i] = stem
		byStem[stem] = candidate
	}
	best, _, ok := textutil.BestMatch(committeeStem(canonical), stems, committeeMatchThreshold)
	if !ok {
		return model.CommitteeKey{}, false
	}
	return model.CommitteeKey{Chamber: chamber, Name: byStem[best]}, true
}

func matchMember(
	name string,
	chambers []model.Chamber,
	names map[model.Chamber][]string,
	byName map[model.Chamber]map[string]model.MemberKey,
) (model.MemberKey, bool) {
	var bestKey model.MemberKey
	var bestSimilarity float64
	found := false

	for _, chamber := range chambers {
		match, similarity, ok := textutil.BestMatch(name, names[chamber], memberMatchThreshold)
		if !ok || similarity <= bestSimilarity {
			continue
		}
		bestKey = byName[chamber][match]
		bestSimilarity = similarity
		found = true
	}

	return bestKey, found
}
