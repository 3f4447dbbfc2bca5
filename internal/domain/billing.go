/**
 * @description
 * Domain models for the billing side of the uplink service: the subscription
 * projection kept locally for fast account reads, and the checkout session
 * records used to reconcile purchases after the user returns from the payment
 * provider's redirect flow.
 */
package domain

import "time"

// Subscription statuses mirrored from the payment provider.
const (
	SubscriptionStatusNone      = "none"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCanceling = "canceling"
	SubscriptionStatusCanceled  = "canceled"
	SubscriptionStatusPastDue   = "past_due"
)

// BillingAccount is the locally persisted projection of a user's standing with
// the payment provider, keyed by the identity provider subject.
type BillingAccount struct {
	Subject          string     `json:"-"`
	CustomerID       string     `json:"-"`
	SubscriptionID   *string    `json:"-"`
	Tier             Tier       `json:"tier"`
	Period           Period     `json:"period,omitempty"`
	Status           string     `json:"status"`
	Lifetime         bool       `json:"lifetime"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"-"`
	UpdatedAt        time.Time  `json:"-"`
}

// Active reports whether the account currently entitles paid features.
func (a *BillingAccount) Active() bool {
	if a.Lifetime {
		return true
	}
	return a.Status == SubscriptionStatusActive || a.Status == SubscriptionStatusCanceling
}

// FreeAccount is the projection returned when a user has no billing record.
func FreeAccount(subject string) *BillingAccount {
	return &BillingAccount{
		Subject: subject,
		Tier:    TierFree,
		Status:  SubscriptionStatusNone,
	}
}

// Checkout session statuses. Pending sessions were opened but not yet
// confirmed; complete and expired are terminal.
const (
	CheckoutStatusPending  = "pending"
	CheckoutStatusComplete = "complete"
	CheckoutStatusExpired  = "expired"
)

// CheckoutSession represents a single attempt to purchase a plan. The session
// identifier is an opaque token minted by the payment provider; tier and
// period are recorded at selection time so reconciliation knows what to
// activate without trusting anything from the redirect URL.
type CheckoutSession struct {
	SessionID string    `json:"session_id"`
	Subject   string    `json:"-"`
	Tier      Tier      `json:"tier"`
	Period    Period    `json:"period"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the session has reached a final status and must
// not be reconciled again.
func (s *CheckoutSession) Terminal() bool {
	return s.Status == CheckoutStatusComplete || s.Status == CheckoutStatusExpired
}
