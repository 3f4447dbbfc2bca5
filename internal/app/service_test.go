package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/myscrollr/uplink-service/internal/catalog"
	"github.com/myscrollr/uplink-service/internal/domain"
	"github.com/myscrollr/uplink-service/internal/store"
	"github.com/myscrollr/uplink-service/pkg/billingclient"
	"github.com/myscrollr/uplink-service/pkg/identity"
)

// repoStub is an in-memory Repository for tests.
type repoStub struct {
	accounts map[string]*domain.BillingAccount
	sessions map[string]*domain.CheckoutSession

	accountErr error
	sessionErr error

	activated []domain.CheckoutSession
	marked    map[string]string
	created   []domain.CheckoutSession
	pending   []domain.CheckoutSession
}

func newRepoStub() *repoStub {
	return &repoStub{
		accounts: make(map[string]*domain.BillingAccount),
		sessions: make(map[string]*domain.CheckoutSession),
		marked:   make(map[string]string),
	}
}

func (r *repoStub) GetAccount(ctx context.Context, subject string) (*domain.BillingAccount, error) {
	if r.accountErr != nil {
		return nil, r.accountErr
	}
	acct, ok := r.accounts[subject]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return acct, nil
}

func (r *repoStub) ActivateAccount(ctx context.Context, subject string, tier domain.Tier, period domain.Period) error {
	r.activated = append(r.activated, domain.CheckoutSession{Subject: subject, Tier: tier, Period: period})
	r.accounts[subject] = &domain.BillingAccount{
		Subject:  subject,
		Tier:     tier,
		Period:   period,
		Status:   domain.SubscriptionStatusActive,
		Lifetime: period == domain.PeriodLifetime,
	}
	return nil
}

func (r *repoStub) UpdateAccountStatus(ctx context.Context, subject, status string, periodEnd *time.Time) error {
	if acct, ok := r.accounts[subject]; ok && !acct.Lifetime {
		acct.Status = status
	}
	return nil
}

func (r *repoStub) CreateCheckoutSession(ctx context.Context, sess *domain.CheckoutSession) error {
	r.created = append(r.created, *sess)
	if _, exists := r.sessions[sess.SessionID]; !exists {
		copied := *sess
		copied.Status = domain.CheckoutStatusPending
		r.sessions[sess.SessionID] = &copied
	}
	return nil
}

func (r *repoStub) GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	if r.sessionErr != nil {
		return nil, r.sessionErr
	}
	sess, ok := r.sessions[sessionID]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return sess, nil
}

func (r *repoStub) MarkCheckoutSession(ctx context.Context, sessionID, status string) error {
	r.marked[sessionID] = status
	if sess, ok := r.sessions[sessionID]; ok {
		sess.Status = status
	}
	return nil
}

func (r *repoStub) ListPendingCheckoutSessions(ctx context.Context, olderThan time.Time, limit int) ([]domain.CheckoutSession, error) {
	return r.pending, nil
}

// billingStub is a scripted BillingClient.
type billingStub struct {
	createIntent *billingclient.CheckoutIntent
	createErr    error
	createCalls  int

	returnStatus string
	returnErr    error
	returnCalls  int

	cancelResult *billingclient.CancelResult
	cancelErr    error
}

func (b *billingStub) CreateCheckoutSession(ctx context.Context, params billingclient.CheckoutParams, token identity.TokenSupplier) (*billingclient.CheckoutIntent, error) {
	b.createCalls++
	if b.createErr != nil {
		return nil, b.createErr
	}
	if b.createIntent != nil {
		return b.createIntent, nil
	}
	return &billingclient.CheckoutIntent{SessionID: "sess_test", ClientSecret: "secret"}, nil
}

func (b *billingStub) GetCheckoutReturn(ctx context.Context, sessionID string, token identity.TokenSupplier) (*billingclient.CheckoutReturn, error) {
	b.returnCalls++
	if b.returnErr != nil {
		return nil, b.returnErr
	}
	return &billingclient.CheckoutReturn{SessionID: sessionID, Status: b.returnStatus}, nil
}

func (b *billingStub) CancelSubscription(ctx context.Context, token identity.TokenSupplier) (*billingclient.CancelResult, error) {
	if b.cancelErr != nil {
		return nil, b.cancelErr
	}
	if b.cancelResult != nil {
		return b.cancelResult, nil
	}
	return &billingclient.CancelResult{Status: domain.SubscriptionStatusCanceling}, nil
}

// streamsStub is a scripted StreamsClient.
type streamsStub struct {
	items []domain.StreamItem
	err   error
}

func (s *streamsStub) GetAll(ctx context.Context, token identity.TokenSupplier) ([]domain.StreamItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

// rolesStub records role grants.
type rolesStub struct {
	assigned []string
	removed  []string
	err      error
}

func (r *rolesStub) AssignUplinkRole(ctx context.Context, subject string) error {
	if r.err != nil {
		return r.err
	}
	r.assigned = append(r.assigned, subject)
	return nil
}

func (r *rolesStub) RemoveUplinkRole(ctx context.Context, subject string) error {
	if r.err != nil {
		return r.err
	}
	r.removed = append(r.removed, subject)
	return nil
}

// eventsStub records published routing keys.
type eventsStub struct {
	published []string
	err       error
}

func (e *eventsStub) Publish(ctx context.Context, routingKey string, body interface{}) error {
	if e.err != nil {
		return e.err
	}
	e.published = append(e.published, routingKey)
	return nil
}

// testDeps bundles the stubs behind a Service under test.
type testDeps struct {
	repo    *repoStub
	billing *billingStub
	streams *streamsStub
	roles   *rolesStub
	events  *eventsStub
}

func testPrices() *catalog.PriceTable {
	return catalog.NewPriceTable(map[domain.Tier]map[domain.Period]string{
		domain.TierPro: {
			domain.PeriodMonthly: "price_pro_monthly",
			domain.PeriodAnnual:  "price_pro_annual",
		},
		domain.TierUnlimited: {
			domain.PeriodMonthly:  "price_unlimited_monthly",
			domain.PeriodAnnual:   "price_unlimited_annual",
			domain.PeriodLifetime: "price_unlimited_lifetime",
		},
	})
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		repo:    newRepoStub(),
		billing: &billingStub{},
		streams: &streamsStub{},
		roles:   &rolesStub{},
		events:  &eventsStub{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(deps.repo, deps.billing, deps.streams, deps.roles, deps.events, testPrices(), "https://auth.example.com", logger)
	return svc, deps
}

func authedSession(subject string) identity.Session {
	return identity.NewBearerSession(identity.Claims{Subject: subject}, "token-"+subject)
}

func TestGetSubscription_FreeFallback(t *testing.T) {
	svc, _ := newTestService(t)

	acct, err := svc.GetSubscription(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.Tier != domain.TierFree {
		t.Fatalf("expected free tier, got %s", acct.Tier)
	}
	if acct.Status != domain.SubscriptionStatusNone {
		t.Fatalf("expected status %q, got %q", domain.SubscriptionStatusNone, acct.Status)
	}
}

func TestGetSubscription_RepositoryErrorPropagates(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.accountErr = errors.New("db unavailable")

	if _, err := svc.GetSubscription(context.Background(), "user_1"); err == nil {
		t.Fatal("expected error when repository fails")
	}
}

func TestCancelSubscription_LifetimeRejected(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.accounts["user_1"] = &domain.BillingAccount{
		Subject:  "user_1",
		Tier:     domain.TierUnlimited,
		Status:   domain.SubscriptionStatusActive,
		Lifetime: true,
	}

	_, err := svc.CancelSubscription(context.Background(), authedSession("user_1"))
	if !errors.Is(err, ErrLifetimeNotCancelable) {
		t.Fatalf("expected ErrLifetimeNotCancelable, got %v", err)
	}
}

func TestCancelSubscription_NoActiveSubscription(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CancelSubscription(context.Background(), authedSession("user_1"))
	if !errors.Is(err, ErrNoActiveSubscription) {
		t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestCancelSubscription_MirrorsCancelingStatus(t *testing.T) {
	svc, deps := newTestService(t)
	deps.repo.accounts["user_1"] = &domain.BillingAccount{
		Subject: "user_1",
		Tier:    domain.TierPro,
		Period:  domain.PeriodMonthly,
		Status:  domain.SubscriptionStatusActive,
	}

	result, err := svc.CancelSubscription(context.Background(), authedSession("user_1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.SubscriptionStatusCanceling {
		t.Fatalf("expected canceling result, got %q", result.Status)
	}
	if got := deps.repo.accounts["user_1"].Status; got != domain.SubscriptionStatusCanceling {
		t.Fatalf("expected projection status canceling, got %q", got)
	}
	if len(deps.events.published) != 1 || deps.events.published[0] != routingKeyCanceling {
		t.Fatalf("expected one canceling event, got %v", deps.events.published)
	}
}
