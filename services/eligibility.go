package services

import "github.com/vnkhanh/yearbook-server/models"

// Reason codes returned by the eligibility engine. The order of the rules
// that produce them is fixed so callers always see deterministic codes.
const (
	ReasonSelfPoke          = "SELF_POKE"
	ReasonSenderBanned      = "SENDER_BANNED"
	ReasonTargetBanned      = "TARGET_BANNED"
	ReasonTargetIsStaff     = "TARGET_IS_STAFF"
	ReasonDailyLimitReached = "DAILY_LIMIT_REACHED"
	ReasonPairAlreadyToday  = "PAIR_ALREADY_TODAY"
	ReasonTargetLifetimeCap = "TARGET_LIFETIME_CAP"
	ReasonNotFound          = "NOT_FOUND"
)

// Verdict is the engine's answer for one ordered pair. Reason is empty
// when Allowed is true.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// PairCounters are the pre-fetched counters the engine needs. Supplying
// them from outside is what lets the batch path reuse the same evaluation
// as the single-pair path.
type PairCounters struct {
	SentToday         int // pokes the sender has sent today, all targets
	SentToTargetToday int // pokes sender -> this target today
	SentToTargetTotal int // pokes sender -> this target, all time
}

// PokePolicy is the tunable part of the rule set. The pair-per-day and
// lifetime-per-target rules exist but ship disabled; they stay modeled as
// rules so they can be switched back on without a redesign.
type PokePolicy struct {
	DailyLimit           int
	PairPerDayEnabled    bool
	LifetimeCapEnabled   bool
	LifetimePerTargetCap int
	AllowedReactions     []string
}

// DefaultPokePolicy matches the shipped behavior: five pokes per day, the
// extra rules off, a small emoji palette.
func DefaultPokePolicy() PokePolicy {
	return PokePolicy{
		DailyLimit:           5,
		PairPerDayEnabled:    false,
		LifetimeCapEnabled:   false,
		LifetimePerTargetCap: 10,
		AllowedReactions:     []string{"❤️", "😂", "😮", "😢", "👍"},
	}
}

// ReactionAllowed reports whether r is in the configured emoji set.
func (p PokePolicy) ReactionAllowed(r string) bool {
	for _, a := range p.AllowedReactions {
		if a == r {
			return true
		}
	}
	return false
}

type pokeRule struct {
	reason  string
	enabled func(PokePolicy) bool
	failed  func(from, to *models.GuestSession, c PairCounters, p PokePolicy) bool
}

var pokeRules = []pokeRule{
	{
		reason:  ReasonSelfPoke,
		enabled: func(PokePolicy) bool { return true },
		failed: func(from, to *models.GuestSession, _ PairCounters, _ PokePolicy) bool {
			return from.ID == to.ID
		},
	},
	{
		reason:  ReasonSenderBanned,
		enabled: func(PokePolicy) bool { return true },
		failed: func(from, _ *models.GuestSession, _ PairCounters, _ PokePolicy) bool {
			return from.IsBanned
		},
	},
	{
		reason:  ReasonTargetBanned,
		enabled: func(PokePolicy) bool { return true },
		failed: func(_, to *models.GuestSession, _ PairCounters, _ PokePolicy) bool {
			return to.IsBanned
		},
	},
	{
		reason:  ReasonTargetIsStaff,
		enabled: func(PokePolicy) bool { return true },
		failed: func(_, to *models.GuestSession, _ PairCounters, _ PokePolicy) bool {
			return to.IsExtra
		},
	},
	{
		reason:  ReasonDailyLimitReached,
		enabled: func(PokePolicy) bool { return true },
		failed: func(_, _ *models.GuestSession, c PairCounters, p PokePolicy) bool {
			return c.SentToday >= p.DailyLimit
		},
	},
	{
		reason:  ReasonPairAlreadyToday,
		enabled: func(p PokePolicy) bool { return p.PairPerDayEnabled },
		failed: func(_, _ *models.GuestSession, c PairCounters, _ PokePolicy) bool {
			return c.SentToTargetToday > 0
		},
	},
	{
		reason:  ReasonTargetLifetimeCap,
		enabled: func(p PokePolicy) bool { return p.LifetimeCapEnabled },
		failed: func(_, _ *models.GuestSession, c PairCounters, p PokePolicy) bool {
			return c.SentToTargetTotal >= p.LifetimePerTargetCap
		},
	},
}

// Evaluate runs the ordered rule chain for one sender/target pair. It does
// no I/O and never fails; both the single send path and the batch path go
// through here so their verdicts cannot drift apart.
func Evaluate(from, to *models.GuestSession, c PairCounters, p PokePolicy) Verdict {
	for _, rule := range pokeRules {
		if !rule.enabled(p) {
			continue
		}
		if rule.failed(from, to, c, p) {
			return Verdict{Allowed: false, Reason: rule.reason}
		}
	}
	return Verdict{Allowed: true}
}
