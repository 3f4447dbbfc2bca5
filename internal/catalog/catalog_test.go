package catalog

import (
	"testing"

	"github.com/myscrollr/uplink-service/internal/domain"
)

func TestValidate(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatalf("catalog failed validation: %v", err)
	}
}

func TestPlan_ExhaustiveOverPaidTiers(t *testing.T) {
	for _, tier := range domain.PaidTiers {
		for _, period := range domain.Periods {
			plan, ok := Plan(tier, period)
			if !ok {
				t.Fatalf("no catalog entry for %s/%s", tier, period)
			}
			if plan.Tier != tier || plan.Period != period {
				t.Errorf("entry for %s/%s labeled %s/%s", tier, period, plan.Tier, plan.Period)
			}
			if plan.PriceCents <= 0 {
				t.Errorf("%s/%s has non-positive price %d", tier, period, plan.PriceCents)
			}
		}
	}
}

func TestPlan_RejectsNonCatalogPairs(t *testing.T) {
	tests := []struct {
		name   string
		tier   domain.Tier
		period domain.Period
	}{
		{"free tier", domain.TierFree, domain.PeriodMonthly},
		{"unknown tier", domain.Tier("mega"), domain.PeriodMonthly},
		{"unknown period", domain.TierPro, domain.Period("weekly")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Plan(tc.tier, tc.period); ok {
				t.Errorf("expected no entry for %s/%s", tc.tier, tc.period)
			}
		})
	}
}

func TestCommitmentDiscountMonotonic(t *testing.T) {
	for _, tier := range domain.PaidTiers {
		monthly, _ := Plan(tier, domain.PeriodMonthly)
		quarterly, _ := Plan(tier, domain.PeriodQuarterly)
		annual, _ := Plan(tier, domain.PeriodAnnual)

		if quarterly.PerMonthCents > monthly.PerMonthCents {
			t.Errorf("tier %s: quarterly %d/mo exceeds monthly %d/mo", tier, quarterly.PerMonthCents, monthly.PerMonthCents)
		}
		if annual.PerMonthCents > quarterly.PerMonthCents {
			t.Errorf("tier %s: annual %d/mo exceeds quarterly %d/mo", tier, annual.PerMonthCents, quarterly.PerMonthCents)
		}
	}
}

func TestAll_StableOrderAndComplete(t *testing.T) {
	all := All()

	want := len(domain.PaidTiers) * len(domain.Periods)
	if len(all) != want {
		t.Fatalf("All() returned %d plans, want %d", len(all), want)
	}

	i := 0
	for _, tier := range domain.PaidTiers {
		for _, period := range domain.Periods {
			if all[i].Tier != tier || all[i].Period != period {
				t.Errorf("position %d: got %s/%s, want %s/%s", i, all[i].Tier, all[i].Period, tier, period)
			}
			i++
		}
	}
}

func TestLifetimeHasNoPerMonthFigure(t *testing.T) {
	for _, tier := range domain.PaidTiers {
		plan, _ := Plan(tier, domain.PeriodLifetime)
		if plan.PerMonthCents != 0 {
			t.Errorf("tier %s: lifetime carries a per-month figure %d", tier, plan.PerMonthCents)
		}
		if plan.SavingsLabel != "" {
			t.Errorf("tier %s: lifetime carries a savings label %q", tier, plan.SavingsLabel)
		}
	}
}

func TestPriceTable(t *testing.T) {
	table := NewPriceTable(map[domain.Tier]map[domain.Period]string{
		domain.TierPro: {
			domain.PeriodMonthly: "price_pro_monthly",
			domain.PeriodAnnual:  "", // unconfigured
		},
		domain.TierUnlimited: {
			domain.PeriodLifetime: "price_unlimited_lifetime",
		},
	})

	if got := table.PriceID(domain.TierPro, domain.PeriodMonthly); got != "price_pro_monthly" {
		t.Errorf("PriceID(pro, monthly) = %q", got)
	}
	if got := table.PriceID(domain.TierPro, domain.PeriodAnnual); got != "" {
		t.Errorf("unconfigured plan should have empty price ID, got %q", got)
	}
	if got := table.PriceID(domain.TierPro, domain.PeriodQuarterly); got != "" {
		t.Errorf("absent plan should have empty price ID, got %q", got)
	}

	tier, period, ok := table.PlanFromPriceID("price_unlimited_lifetime")
	if !ok || tier != domain.TierUnlimited || period != domain.PeriodLifetime {
		t.Errorf("PlanFromPriceID = %s/%s ok=%v", tier, period, ok)
	}
	if _, _, ok := table.PlanFromPriceID("price_unknown"); ok {
		t.Error("unknown price ID should not resolve")
	}
}
