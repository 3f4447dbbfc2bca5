/**
 * @description
 * PriceTable maps catalog plans to the payment provider's price identifiers.
 * Price IDs are deployment configuration (they differ between test and live
 * provider accounts), so the table is built from config at startup rather than
 * hardcoded next to the prices.
 */
package catalog

import (
	"github.com/myscrollr/uplink-service/internal/domain"
)

// planKey identifies a paid plan in the price table.
type planKey struct {
	Tier   domain.Tier
	Period domain.Period
}

// PriceTable resolves (tier, period) to a provider price ID and back.
type PriceTable struct {
	byPlan  map[planKey]string
	byPrice map[string]planKey
}

// NewPriceTable builds a table from configured price IDs. Entries with an
// empty price ID are skipped: PriceID then returns "" for that plan and the
// checkout initiator treats it as non-actionable.
func NewPriceTable(priceIDs map[domain.Tier]map[domain.Period]string) *PriceTable {
	t := &PriceTable{
		byPlan:  make(map[planKey]string),
		byPrice: make(map[string]planKey),
	}
	for tier, byPeriod := range priceIDs {
		for period, priceID := range byPeriod {
			if priceID == "" {
				continue
			}
			key := planKey{Tier: tier, Period: period}
			t.byPlan[key] = priceID
			t.byPrice[priceID] = key
		}
	}
	return t
}

// PriceID returns the provider price ID for a plan, or "" when the plan is
// not configured for this deployment.
func (t *PriceTable) PriceID(tier domain.Tier, period domain.Period) string {
	return t.byPlan[planKey{Tier: tier, Period: period}]
}

// PlanFromPriceID maps a provider price ID back to its tier and period.
func (t *PriceTable) PlanFromPriceID(priceID string) (domain.Tier, domain.Period, bool) {
	key, ok := t.byPrice[priceID]
	return key.Tier, key.Period, ok
}
