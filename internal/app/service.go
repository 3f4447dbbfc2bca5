/**
 * @description
 * This file contains the core business logic for the uplink service: the
 * dependency surface (collaborator interfaces), the Service container, and
 * the subscription projection operations. The checkout selector, session
 * reconciler and entitlement summary live in sibling files of this package.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/myscrollr/uplink-service/internal/catalog"
	"github.com/myscrollr/uplink-service/internal/domain"
	"github.com/myscrollr/uplink-service/internal/store"
	"github.com/myscrollr/uplink-service/pkg/billingclient"
	"github.com/myscrollr/uplink-service/pkg/identity"
)

var (
	// ErrUnknownPlan is returned for a (tier, period) pair outside the catalog.
	ErrUnknownPlan = errors.New("unknown plan")
	// ErrPriceNotConfigured means the catalog has the plan but this deployment
	// has no provider price ID for it; checkout is non-actionable.
	ErrPriceNotConfigured = errors.New("price not configured for plan")
	// ErrAlreadySubscribed rejects opening checkout over an active subscription.
	ErrAlreadySubscribed = errors.New("an active subscription already exists")
	// ErrNoActiveSubscription is returned when cancelling with nothing to cancel.
	ErrNoActiveSubscription = errors.New("no active subscription found")
	// ErrLifetimeNotCancelable is returned for cancel attempts on lifetime accounts.
	ErrLifetimeNotCancelable = errors.New("lifetime memberships cannot be cancelled")
)

// Repository defines the interface for database operations that the service needs.
type Repository interface {
	GetAccount(ctx context.Context, subject string) (*domain.BillingAccount, error)
	ActivateAccount(ctx context.Context, subject string, tier domain.Tier, period domain.Period) error
	UpdateAccountStatus(ctx context.Context, subject, status string, periodEnd *time.Time) error
	CreateCheckoutSession(ctx context.Context, sess *domain.CheckoutSession) error
	GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	MarkCheckoutSession(ctx context.Context, sessionID, status string) error
	ListPendingCheckoutSessions(ctx context.Context, olderThan time.Time, limit int) ([]domain.CheckoutSession, error)
}

// BillingClient defines the billing API operations the service consumes.
type BillingClient interface {
	CreateCheckoutSession(ctx context.Context, params billingclient.CheckoutParams, token identity.TokenSupplier) (*billingclient.CheckoutIntent, error)
	GetCheckoutReturn(ctx context.Context, sessionID string, token identity.TokenSupplier) (*billingclient.CheckoutReturn, error)
	CancelSubscription(ctx context.Context, token identity.TokenSupplier) (*billingclient.CancelResult, error)
}

// StreamsClient defines the streams API operations the service consumes.
type StreamsClient interface {
	GetAll(ctx context.Context, token identity.TokenSupplier) ([]domain.StreamItem, error)
}

// RoleManager grants and revokes the identity provider role for paying users.
type RoleManager interface {
	AssignUplinkRole(ctx context.Context, subject string) error
	RemoveUplinkRole(ctx context.Context, subject string) error
}

// EventPublisher publishes billing lifecycle events to the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// selection is an open plan choice awaiting checkout completion.
type selection struct {
	Tier   domain.Tier
	Period domain.Period
}

// Service provides the business logic for the uplink account hub.
type Service struct {
	repo    Repository
	billing BillingClient
	streams StreamsClient
	roles   RoleManager
	events  EventPublisher
	prices  *catalog.PriceTable
	logger  *slog.Logger

	// signInBase is the identity provider endpoint the selector redirects
	// anonymous users to.
	signInBase string

	mu         sync.Mutex
	selections map[string]selection
	reconciled map[string]ReconcileOutcome
	inflight   map[string]bool
}

// NewService creates a new uplink service.
func NewService(repo Repository, billing BillingClient, streams StreamsClient, roles RoleManager, events EventPublisher, prices *catalog.PriceTable, signInBase string, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		billing:    billing,
		streams:    streams,
		roles:      roles,
		events:     events,
		prices:     prices,
		logger:     logger,
		signInBase: signInBase,
		selections: make(map[string]selection),
		reconciled: make(map[string]ReconcileOutcome),
		inflight:   make(map[string]bool),
	}
}

// GetSubscription returns the billing projection for a subject. A user with no
// billing record is on the free plan; that is not an error.
func (s *Service) GetSubscription(ctx context.Context, subject string) (*domain.BillingAccount, error) {
	acct, err := s.repo.GetAccount(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return domain.FreeAccount(subject), nil
		}
		return nil, err
	}
	return acct, nil
}

// CancelSubscription asks the payment provider to stop the subscription at the
// end of the current period and mirrors the result into the projection.
func (s *Service) CancelSubscription(ctx context.Context, sess identity.Session) (*billingclient.CancelResult, error) {
	acct, err := s.GetSubscription(ctx, sess.Subject())
	if err != nil {
		return nil, err
	}
	if acct.Lifetime {
		return nil, ErrLifetimeNotCancelable
	}
	if !acct.Active() || acct.Tier == domain.TierFree {
		return nil, ErrNoActiveSubscription
	}

	result, err := s.billing.CancelSubscription(ctx, sess.Token())
	if err != nil {
		return nil, err
	}

	s.bestEffort(ctx, "update account status after cancel", func() error {
		return s.repo.UpdateAccountStatus(ctx, sess.Subject(), domain.SubscriptionStatusCanceling, result.CurrentPeriodEnd)
	})
	s.publishSubscriptionEvent(ctx, routingKeyCanceling, sess.Subject(), acct.Tier, acct.Period)

	return result, nil
}

// applyCompletedCheckout activates the projection for a completed checkout
// session and performs the follow-up side effects. Every step is best-effort:
// the payment provider remains the source of truth and a miss here is healed
// by the sweep or the next webhook-driven sync.
func (s *Service) applyCompletedCheckout(ctx context.Context, sess domain.CheckoutSession) {
	s.bestEffort(ctx, "activate billing account", func() error {
		return s.repo.ActivateAccount(ctx, sess.Subject, sess.Tier, sess.Period)
	})
	s.bestEffort(ctx, "mark checkout session complete", func() error {
		return s.repo.MarkCheckoutSession(ctx, sess.SessionID, domain.CheckoutStatusComplete)
	})
	s.bestEffort(ctx, "assign uplink role", func() error {
		return s.roles.AssignUplinkRole(ctx, sess.Subject)
	})
	s.publishSubscriptionEvent(ctx, routingKeyActivated, sess.Subject, sess.Tier, sess.Period)
}
