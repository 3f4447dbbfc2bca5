/**
 * @description
 * Plan selection and checkout initiation. Selecting a plan while anonymous
 * never opens a checkout: the caller gets a sign-in redirect with a return URL
 * back to the page they were on. Authenticated selections resolve the plan to
 * a provider price ID, open a checkout session carrying the tier's unlimited
 * flag, and remember the open selection until the checkout is closed.
 */
package app

import (
	"context"
	"fmt"

	"github.com/myscrollr/uplink-service/internal/catalog"
	"github.com/myscrollr/uplink-service/internal/domain"
	"github.com/myscrollr/uplink-service/pkg/billingclient"
	"github.com/myscrollr/uplink-service/pkg/identity"
)

// CheckoutOffer is an opened checkout session ready for the UI to embed.
type CheckoutOffer struct {
	SessionID      string        `json:"session_id"`
	PriceID        string        `json:"price_id"`
	Tier           domain.Tier   `json:"tier"`
	Period         domain.Period `json:"period"`
	Unlimited      bool          `json:"unlimited"`
	Lifetime       bool          `json:"lifetime"`
	ClientSecret   string        `json:"client_secret"`
	PublishableKey string        `json:"publishable_key"`
}

// SelectOutcome is the result of a plan selection: exactly one of SignInURL
// (anonymous caller) or Checkout (opened session) is set.
type SelectOutcome struct {
	SignInURL string         `json:"sign_in_url,omitempty"`
	Checkout  *CheckoutOffer `json:"checkout,omitempty"`
}

// SelectPlan maps a tier+period choice to a checkout session. returnTo is the
// page the user is on, used for the sign-in round trip when anonymous.
func (s *Service) SelectPlan(ctx context.Context, sess identity.Session, tier domain.Tier, period domain.Period, returnTo string) (SelectOutcome, error) {
	if _, ok := catalog.Plan(tier, period); !ok {
		return SelectOutcome{}, fmt.Errorf("%w: %s/%s", ErrUnknownPlan, tier, period)
	}

	// Anonymous callers are redirected to sign-in; the checkout never opens.
	if !sess.IsAuthenticated() {
		return SelectOutcome{SignInURL: identity.SignInURL(s.signInBase, returnTo)}, nil
	}

	acct, err := s.GetSubscription(ctx, sess.Subject())
	if err != nil {
		return SelectOutcome{}, err
	}
	if acct.Active() && acct.Tier != domain.TierFree {
		return SelectOutcome{}, ErrAlreadySubscribed
	}

	priceID := s.prices.PriceID(tier, period)
	if priceID == "" {
		// Catalog exhaustiveness makes this unreachable for a fully configured
		// deployment; an unconfigured plan must never reach the provider.
		return SelectOutcome{}, fmt.Errorf("%w: %s/%s", ErrPriceNotConfigured, tier, period)
	}

	params := billingclient.CheckoutParams{
		PriceID:   priceID,
		Lifetime:  period == domain.PeriodLifetime,
		Unlimited: tier.Unlimited(),
	}
	intent, err := s.billing.CreateCheckoutSession(ctx, params, sess.Token())
	if err != nil {
		return SelectOutcome{}, fmt.Errorf("failed to open checkout session: %w", err)
	}

	// Record the pending session so reconciliation knows which plan to
	// activate without trusting anything from the redirect URL.
	s.bestEffort(ctx, "record pending checkout session", func() error {
		return s.repo.CreateCheckoutSession(ctx, &domain.CheckoutSession{
			SessionID: intent.SessionID,
			Subject:   sess.Subject(),
			Tier:      tier,
			Period:    period,
		})
	})

	s.mu.Lock()
	s.selections[sess.Subject()] = selection{Tier: tier, Period: period}
	s.mu.Unlock()

	return SelectOutcome{Checkout: &CheckoutOffer{
		SessionID:      intent.SessionID,
		PriceID:        priceID,
		Tier:           tier,
		Period:         period,
		Unlimited:      params.Unlimited,
		Lifetime:       params.Lifetime,
		ClientSecret:   intent.ClientSecret,
		PublishableKey: intent.PublishableKey,
	}}, nil
}

// CloseCheckout fully resets the remembered selection for a subject so a
// subsequent open starts clean.
func (s *Service) CloseCheckout(subject string) {
	s.mu.Lock()
	delete(s.selections, subject)
	s.mu.Unlock()
}

// Selection returns the subject's open selection, if any.
func (s *Service) Selection(subject string) (domain.Tier, domain.Period, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[subject]
	return sel.Tier, sel.Period, ok
}
