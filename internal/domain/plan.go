/**
 * @description
 * This file defines the closed tier and billing-period enumerations and the
 * BillingPlan record that the pricing catalog is built from. Tiers and periods
 * are deliberately typed (not raw strings) so that the catalog's exhaustiveness
 * check can enumerate them and an unknown value is unrepresentable in handlers.
 */
package domain

// Tier is a named service level determining feature limits.
type Tier string

const (
	TierFree      Tier = "free"
	TierPro       Tier = "pro"
	TierUnlimited Tier = "unlimited"
)

// PaidTiers lists every tier that can be purchased. TierFree is the implicit
// fallback and never appears in the catalog.
var PaidTiers = []Tier{TierPro, TierUnlimited}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierUnlimited:
		return true
	}
	return false
}

// Unlimited reports whether this tier entitles the user to unlimited streams.
func (t Tier) Unlimited() bool {
	return t == TierUnlimited
}

// Period is a billing cadence, or the one-time "lifetime" pseudo-period.
type Period string

const (
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodAnnual    Period = "annual"
	PeriodLifetime  Period = "lifetime"
)

// Periods lists every purchasable billing period, recurring first.
var Periods = []Period{PeriodMonthly, PeriodQuarterly, PeriodAnnual, PeriodLifetime}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodAnnual, PeriodLifetime:
		return true
	}
	return false
}

// Recurring reports whether the period renews. Lifetime is a single payment.
func (p Period) Recurring() bool {
	return p != PeriodLifetime
}

// BillingPlan identifies a single recurring (or lifetime) purchase option.
// Monetary amounts are in cents to avoid floating point drift in price math.
type BillingPlan struct {
	Tier          Tier   `json:"tier"`
	Period        Period `json:"period"`
	PriceCents    int64  `json:"price_cents"`
	PeriodLabel   string `json:"period_label"`
	PerMonthCents int64  `json:"per_month_cents"`
	SavingsLabel  string `json:"savings_label,omitempty"`
}
