package models

import (
	"time"

	"github.com/nusapalma/nusapalma/internal/plan"
)

// Subscription is the tier window written onto a user.
type Subscription struct {
	Plan      string     `json:"plan"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

// SubscriptionStatus is what a user sees about their own subscription.
// CurrentPlan is the stored value and may be stale; EffectivePlan and
// IsActive are derived at read time.
type SubscriptionStatus struct {
	CurrentPlan   string     `json:"currentPlan"`
	PlanDetails   plan.Plan  `json:"planDetails"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
	IsActive      bool       `json:"isActive"`
	EffectivePlan string     `json:"effectivePlan"`
}
