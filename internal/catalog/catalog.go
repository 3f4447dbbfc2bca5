/**
 * @description
 * The build-time pricing catalog: a fixed, immutable table mapping every paid
 * (tier, period) pair to its BillingPlan record. Lookup is a pure function.
 * There is no runtime error case — the table is statically exhaustive over the
 * closed tier/period enums, and Validate (run from main and re-asserted in
 * tests) turns an incomplete or mispriced table into a startup failure instead
 * of a latent defect.
 */
package catalog

import (
	"fmt"

	"github.com/myscrollr/uplink-service/internal/domain"
)

// plans is the canonical price table. Longer commitments always cost less per
// month within a tier; lifetime is a one-time purchase and carries no
// per-month figure.
var plans = map[domain.Tier]map[domain.Period]domain.BillingPlan{
	domain.TierPro: {
		domain.PeriodMonthly: {
			Tier: domain.TierPro, Period: domain.PeriodMonthly,
			PriceCents: 500, PeriodLabel: "/month", PerMonthCents: 500,
		},
		domain.PeriodQuarterly: {
			Tier: domain.TierPro, Period: domain.PeriodQuarterly,
			PriceCents: 1350, PeriodLabel: "/3 months", PerMonthCents: 450,
			SavingsLabel: "Save 10%",
		},
		domain.PeriodAnnual: {
			Tier: domain.TierPro, Period: domain.PeriodAnnual,
			PriceCents: 4800, PeriodLabel: "/year", PerMonthCents: 400,
			SavingsLabel: "Save 20%",
		},
		domain.PeriodLifetime: {
			Tier: domain.TierPro, Period: domain.PeriodLifetime,
			PriceCents: 9900, PeriodLabel: "one-time",
		},
	},
	domain.TierUnlimited: {
		domain.PeriodMonthly: {
			Tier: domain.TierUnlimited, Period: domain.PeriodMonthly,
			PriceCents: 1000, PeriodLabel: "/month", PerMonthCents: 1000,
		},
		domain.PeriodQuarterly: {
			Tier: domain.TierUnlimited, Period: domain.PeriodQuarterly,
			PriceCents: 2700, PeriodLabel: "/3 months", PerMonthCents: 900,
			SavingsLabel: "Save 10%",
		},
		domain.PeriodAnnual: {
			Tier: domain.TierUnlimited, Period: domain.PeriodAnnual,
			PriceCents: 9600, PeriodLabel: "/year", PerMonthCents: 800,
			SavingsLabel: "Save 20%",
		},
		domain.PeriodLifetime: {
			Tier: domain.TierUnlimited, Period: domain.PeriodLifetime,
			PriceCents: 19900, PeriodLabel: "one-time",
		},
	},
}

// Plan returns the catalog entry for a paid (tier, period) pair. The second
// return is false only for pairs outside the catalog (the free tier, or an
// unknown enum value that slipped past request validation).
func Plan(tier domain.Tier, period domain.Period) (domain.BillingPlan, bool) {
	byPeriod, ok := plans[tier]
	if !ok {
		return domain.BillingPlan{}, false
	}
	plan, ok := byPeriod[period]
	return plan, ok
}

// All returns every catalog entry in a stable tier-then-period order, for the
// public pricing endpoint.
func All() []domain.BillingPlan {
	out := make([]domain.BillingPlan, 0, len(domain.PaidTiers)*len(domain.Periods))
	for _, tier := range domain.PaidTiers {
		for _, period := range domain.Periods {
			if plan, ok := Plan(tier, period); ok {
				out = append(out, plan)
			}
		}
	}
	return out
}

// Validate checks the catalog is exhaustive over paid tiers and periods and
// that, within each tier, the effective monthly cost never increases with
// commitment length (monthly >= quarterly >= annual). Called once at startup.
func Validate() error {
	for _, tier := range domain.PaidTiers {
		for _, period := range domain.Periods {
			plan, ok := Plan(tier, period)
			if !ok {
				return fmt.Errorf("catalog missing entry for %s/%s", tier, period)
			}
			if plan.Tier != tier || plan.Period != period {
				return fmt.Errorf("catalog entry for %s/%s is mislabeled as %s/%s",
					tier, period, plan.Tier, plan.Period)
			}
			if plan.PriceCents <= 0 {
				return fmt.Errorf("catalog entry for %s/%s has non-positive price", tier, period)
			}
		}

		monthly, _ := Plan(tier, domain.PeriodMonthly)
		quarterly, _ := Plan(tier, domain.PeriodQuarterly)
		annual, _ := Plan(tier, domain.PeriodAnnual)
		if monthly.PerMonthCents < quarterly.PerMonthCents {
			return fmt.Errorf("tier %s: quarterly per-month cost exceeds monthly", tier)
		}
		if quarterly.PerMonthCents < annual.PerMonthCents {
			return fmt.Errorf("tier %s: annual per-month cost exceeds quarterly", tier)
		}
	}
	return nil
}
