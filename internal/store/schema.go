/**
 * @description
 * Schema bootstrap for the uplink-service tables. Runs once at startup so a
 * fresh database is usable without a separate migration step.
 */
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the service's tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS billing_accounts (
			subject            TEXT PRIMARY KEY,
			customer_id        TEXT NOT NULL DEFAULT '',
			subscription_id    TEXT,
			tier               TEXT NOT NULL DEFAULT 'free',
			period             TEXT NOT NULL DEFAULT '',
			status             TEXT NOT NULL DEFAULT 'none',
			lifetime           BOOLEAN NOT NULL DEFAULT false,
			current_period_end TIMESTAMPTZ,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS checkout_sessions (
			session_id TEXT PRIMARY KEY,
			subject    TEXT NOT NULL,
			tier       TEXT NOT NULL,
			period     TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkout_sessions_pending
			ON checkout_sessions (created_at)
			WHERE status = 'pending'`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
