package domain

import "testing"

func TestTierValid(t *testing.T) {
	for _, tier := range []Tier{TierFree, TierPro, TierUnlimited} {
		if !tier.Valid() {
			t.Errorf("tier %q should be valid", tier)
		}
	}
	for _, tier := range []Tier{"", "mega", "PRO"} {
		if tier.Valid() {
			t.Errorf("tier %q should be invalid", tier)
		}
	}
}

func TestTierUnlimited(t *testing.T) {
	if TierFree.Unlimited() || TierPro.Unlimited() {
		t.Error("only the unlimited tier is unlimited")
	}
	if !TierUnlimited.Unlimited() {
		t.Error("unlimited tier should report unlimited")
	}
}

func TestPeriodValid(t *testing.T) {
	for _, period := range Periods {
		if !period.Valid() {
			t.Errorf("period %q should be valid", period)
		}
	}
	for _, period := range []Period{"", "weekly", "Monthly"} {
		if period.Valid() {
			t.Errorf("period %q should be invalid", period)
		}
	}
}

func TestPeriodRecurring(t *testing.T) {
	for _, period := range []Period{PeriodMonthly, PeriodQuarterly, PeriodAnnual} {
		if !period.Recurring() {
			t.Errorf("period %q should be recurring", period)
		}
	}
	if PeriodLifetime.Recurring() {
		t.Error("lifetime is a single payment, not recurring")
	}
}
