/**
 * @description
 * This file implements the data access layer for the uplink-service.
 * It contains all the SQL queries and logic for interacting with the database:
 * the billing_accounts projection and the checkout_sessions ledger that backs
 * idempotent reconciliation and the pending-session sweep.
 */
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/myscrollr/uplink-service/internal/domain"
)

var (
	// ErrAccountNotFound is returned when a user has no billing record yet.
	ErrAccountNotFound = errors.New("billing account not found")
	// ErrSessionNotFound is returned for unknown checkout session identifiers.
	ErrSessionNotFound = errors.New("checkout session not found")
)

// Repository handles database operations for billing accounts and checkout sessions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetAccount retrieves the billing projection for a subject.
func (r *Repository) GetAccount(ctx context.Context, subject string) (*domain.BillingAccount, error) {
	var acct domain.BillingAccount
	query := `
        SELECT subject, customer_id, subscription_id, tier, period, status,
               lifetime, current_period_end, created_at, updated_at
        FROM billing_accounts
        WHERE subject = $1
    `
	err := r.db.QueryRow(ctx, query, subject).Scan(
		&acct.Subject,
		&acct.CustomerID,
		&acct.SubscriptionID,
		&acct.Tier,
		&acct.Period,
		&acct.Status,
		&acct.Lifetime,
		&acct.CurrentPeriodEnd,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// ActivateAccount upserts the projection into an active state for the given
// plan. A lifetime purchase sets the lifetime flag and keeps it set forever;
// recurring plans record tier and period for later display.
func (r *Repository) ActivateAccount(ctx context.Context, subject string, tier domain.Tier, period domain.Period) error {
	lifetime := period == domain.PeriodLifetime
	query := `
        INSERT INTO billing_accounts (subject, tier, period, status, lifetime)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (subject) DO UPDATE SET
            tier = EXCLUDED.tier,
            period = EXCLUDED.period,
            status = EXCLUDED.status,
            lifetime = billing_accounts.lifetime OR EXCLUDED.lifetime,
            updated_at = NOW()
    `
	_, err := r.db.Exec(ctx, query, subject, tier, period, domain.SubscriptionStatusActive, lifetime)
	return err
}

// UpdateAccountStatus sets the subscription status (and optionally the period
// end) without touching the plan. Lifetime accounts are never downgraded.
func (r *Repository) UpdateAccountStatus(ctx context.Context, subject, status string, periodEnd *time.Time) error {
	query := `
        UPDATE billing_accounts
        SET status = $2,
            current_period_end = COALESCE($3, current_period_end),
            updated_at = NOW()
        WHERE subject = $1 AND lifetime = false
    `
	_, err := r.db.Exec(ctx, query, subject, status, periodEnd)
	return err
}

// CreateCheckoutSession records a newly opened checkout session as pending.
// Replays of the same session identifier are ignored.
func (r *Repository) CreateCheckoutSession(ctx context.Context, sess *domain.CheckoutSession) error {
	query := `
        INSERT INTO checkout_sessions (session_id, subject, tier, period, status)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (session_id) DO NOTHING
    `
	_, err := r.db.Exec(ctx, query, sess.SessionID, sess.Subject, sess.Tier, sess.Period, domain.CheckoutStatusPending)
	return err
}

// GetCheckoutSession retrieves a checkout session by its provider identifier.
func (r *Repository) GetCheckoutSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error) {
	var sess domain.CheckoutSession
	query := `
        SELECT session_id, subject, tier, period, status, created_at, updated_at
        FROM checkout_sessions
        WHERE session_id = $1
    `
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&sess.SessionID,
		&sess.Subject,
		&sess.Tier,
		&sess.Period,
		&sess.Status,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// MarkCheckoutSession transitions a checkout session to a new status.
func (r *Repository) MarkCheckoutSession(ctx context.Context, sessionID, status string) error {
	query := `
        UPDATE checkout_sessions
        SET status = $2, updated_at = NOW()
        WHERE session_id = $1
    `
	tag, err := r.db.Exec(ctx, query, sessionID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListPendingCheckoutSessions returns sessions still pending that were opened
// before the cutoff, oldest first. Used by the reconciliation sweep.
func (r *Repository) ListPendingCheckoutSessions(ctx context.Context, olderThan time.Time, limit int) ([]domain.CheckoutSession, error) {
	query := `
        SELECT session_id, subject, tier, period, status, created_at, updated_at
        FROM checkout_sessions
        WHERE status = $1 AND created_at < $2
        ORDER BY created_at ASC
        LIMIT $3
    `
	rows, err := r.db.Query(ctx, query, domain.CheckoutStatusPending, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.CheckoutSession, 0)
	for rows.Next() {
		var sess domain.CheckoutSession
		if err := rows.Scan(
			&sess.SessionID,
			&sess.Subject,
			&sess.Tier,
			&sess.Period,
			&sess.Status,
			&sess.CreatedAt,
			&sess.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
