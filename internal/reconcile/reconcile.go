package reconcile

// Stored wraps a store entity with the bookkeeping the reconciler needs.
type Stored[E any] struct {
	Entity        E
	LastSeenCycle int
}

// Plan is the mutation set for one entity kind. Touches are rows whose
// attributes are unchanged but whose last-seen cycle must still advance.
type Plan[E any] struct {
	Creates     []E
	Updates     []E
	Touches     []E
	Deactivates []E
}

func (p Plan[E]) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 &&
		len(p.Touches) == 0 && len(p.Deactivates) == 0
}

type Options struct {
	// Cycle is the number this cycle will be recorded as.
	Cycle int
	// GraceCycles is how many consecutive successful cycles an entity may
	// be unobserved before deactivation (default 2).
	GraceCycles int
	// StreamComplete is false when the stage's stream failed partway;
	// deactivation is suppressed so an incomplete observation never
	// retires rows.
	StreamComplete bool
}

// Entities computes the mutation set for one kind. Incoming records are in
// upstream order; a key observed twice keeps the later record. Deactivation
// only applies to active entities unobserved long enough, and only after a
// complete stream.
func Entities[E any, K comparable](
	incoming []E,
	existing map[K]Stored[E],
	key func(E) K,
	equal func(a, b E) bool,
	isActive func(E) bool,
	opts Options,
) Plan[E] {
	var plan Plan[E]

	observed := map[K]int{}
	var order []K
	var pending []E

	for _, record := range incoming {
		k := key(record)
		if idx, dup := observed[k]; dup {
			// same key twice in one stream: the later record wins
			pending[idx] = record
			continue
		}
		observed[k] = len(pending)
		order = append(order, k)
		pending = append(pending, record)
	}

	for _, k := range order {
		record := pending[observed[k]]
		stored, exists := existing[k]
		switch {
		case !exists:
			plan.Creates = append(plan.Creates, record)
		case !equal(stored.Entity, record):
			plan.Updates = append(plan.Updates, record)
		default:
			plan.Touches = append(plan.Touches, record)
		}
	}

	if !opts.StreamComplete {
		return plan
	}

	for k, stored := range existing {
		if _, seen := observed[k]; seen {
			continue
		}
		if !isActive(stored.Entity) {
			continue
		}
		if opts.Cycle-stored.LastSeenCycle >= opts.GraceCycles {
			plan.Deactivates = append(plan.Deactivates, stored.Entity)
		}
	}

	return plan
}
