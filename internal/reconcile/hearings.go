package reconcile

import (
	"congresshub-backend/internal/model"
	"congresshub-backend/internal/normalize"
)

// Hearings collapses the (hearing, committee) observations into one hearing
// per upstream id, picks the primary committee, then computes the mutation
// set.
//
// Primary committee tie-break: the committee the upstream marks primary
// wins; otherwise the stored primary is sticky if it was observed again;
// otherwise the first committee observed this cycle.
func Hearings(
	observations []normalize.HearingObservation,
	existing map[model.HearingKey]Stored[model.Hearing],
	opts Options,
) Plan[model.Hearing] {
	type aggregate struct {
		hearing         model.Hearing
		upstreamPrimary *model.CommitteeKey
		observed        []model.CommitteeKey
	}

	byKey := map[model.HearingKey]*aggregate{}
	var order []model.HearingKey

	for _, obs := range observations {
		k := obs.Hearing.Key()
		agg, ok := byKey[k]
		if !ok {
			agg = &aggregate{hearing: obs.Hearing}
			byKey[k] = agg
			order = append(order, k)
		} else {
			// attributes come from the latest observation of the pair
			agg.hearing = obs.Hearing
		}
		if obs.Committee != nil {
			agg.observed = append(agg.observed, *obs.Committee)
			if obs.Primary {
				primary := *obs.Committee
				agg.upstreamPrimary = &primary
			}
		}
	}

	incoming := make([]model.Hearing, 0, len(order))
	for _, k := range order {
		agg := byKey[k]
		agg.hearing.PrimaryCommittee = pickPrimary(agg.upstreamPrimary, agg.observed, existing[k])
		incoming = append(incoming, agg.hearing)
	}

	return Entities(
		incoming,
		existing,
		model.Hearing.Key,
		hearingsEqual,
		func(h model.Hearing) bool { return h.Status != model.HearingCanceled },
		opts,
	)
}

func pickPrimary(
	upstreamPrimary *model.CommitteeKey,
	observed []model.CommitteeKey,
	stored Stored[model.Hearing],
) *model.CommitteeKey {
	if upstreamPrimary != nil {
		return upstreamPrimary
	}
	if stored.Entity.PrimaryCommittee != nil {
		for _, c := range observed {
			if c == *stored.Entity.PrimaryCommittee {
				sticky := c
				return &sticky
			}
		}
	}
	if len(observed) > 0 {
		first := observed[0]
		return &first
	}
	return nil
}

func hearingsEqual(a, b model.Hearing) bool {
	if a.Congress != b.Congress ||
		a.UpstreamId != b.UpstreamId ||
		a.Title != b.Title ||
		!a.ScheduledAt.Equal(b.ScheduledAt) ||
		a.Location != b.Location ||
		a.Room != b.Room ||
		a.Status != b.Status {
		return false
	}
	return committeeKeyPtrEqual(a.PrimaryCommittee, b.PrimaryCommittee)
}

func committeeKeyPtrEqual(a, b *model.CommitteeKey) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
