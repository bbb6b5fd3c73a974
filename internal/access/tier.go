// Package access decides whether an account may use a tier-gated feature.
//
// The stored plan of a user is the last tier granted to it; it is never
// downgraded when the subscription window lapses. Everything here derives the
// effective tier from (plan, end date, now) without touching stored state.
package access

import (
	"time"

	"github.com/nusapalma/nusapalma/internal/plan"
)

var levels = map[string]int{
	plan.Free:       0,
	plan.Basic:      1,
	plan.Premium:    2,
	plan.Enterprise: 3,
}

// Level returns the rank of a plan key. Unknown or empty keys rank as free.
func Level(planKey string) int {
	return levels[planKey]
}

// Expired reports whether a subscription window with the given end has lapsed at now.
// A nil end never lapses.
func Expired(end *time.Time, now time.Time) bool {
	return end != nil && now.After(*end)
}

// Active is the negation of Expired, kept separate because the subscription
// status view reports it under that name: end == nil || now < end.
func Active(end *time.Time, now time.Time) bool {
	return end == nil || now.Before(*end)
}

// EffectivePlan returns the plan that governs access at now.
func EffectivePlan(planKey string, end *time.Time, now time.Time) string {
	if planKey == "" || Expired(end, now) {
		return plan.Free
	}
	if _, ok := levels[planKey]; !ok {
		return plan.Free
	}
	return planKey
}

// Reason explains a denial.
type Reason string

// Denial reasons.
const (
	ReasonNone         Reason = ""
	ReasonExpired      Reason = "expired"
	ReasonInsufficient Reason = "insufficient"
)

// Decision is the outcome of Check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Check compares the caller's stored plan against required.
//
// A lapsed window denies access even when required is free, the same way the
// gate has always behaved: the caller is told to renew first.
func Check(planKey string, end *time.Time, required string, now time.Time) Decision {
	if Expired(end, now) {
		return Decision{Allowed: false, Reason: ReasonExpired}
	}
	if Level(planKey) < Level(required) {
		return Decision{Allowed: false, Reason: ReasonInsufficient}
	}
	return Decision{Allowed: true, Reason: ReasonNone}
}
