/**
 * @description
 * Scheduled job implementations for the uplink-service. The sweep mops up
 * checkout sessions that stayed pending because the user never came back from
 * the payment redirect (closed tab, crashed browser), re-checking their final
 * status with the service's machine-to-machine token.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/myscrollr/uplink-service/internal/domain"
	"github.com/myscrollr/uplink-service/pkg/identity"
)

// sweepBatchSize caps how many pending sessions one sweep run touches.
const sweepBatchSize = 100

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	service  *Service
	m2mToken identity.TokenSupplier
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewJobs creates a new Jobs runner. m2mToken authenticates billing API calls
// made without a user request.
func NewJobs(service *Service, m2mToken identity.TokenSupplier, maxAge time.Duration, logger *slog.Logger) *Jobs {
	return &Jobs{
		service:  service,
		m2mToken: m2mToken,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// SweepPendingCheckouts re-reconciles checkout sessions that have been pending
// longer than the configured age.
func (j *Jobs) SweepPendingCheckouts() {
	j.logger.Info("starting pending checkout sweep")
	ctx := context.Background()

	cutoff := time.Now().Add(-j.maxAge)
	sessions, err := j.service.repo.ListPendingCheckoutSessions(ctx, cutoff, sweepBatchSize)
	if err != nil {
		j.logger.Error("failed to list pending checkout sessions", "error", err)
		return
	}

	if len(sessions) == 0 {
		j.logger.Info("no pending checkout sessions to sweep")
		return
	}

	j.logger.Info("found pending checkout sessions", "count", len(sessions))

	for _, sess := range sessions {
		ret, err := j.service.billing.GetCheckoutReturn(ctx, sess.SessionID, j.m2mToken)
		if err != nil {
			j.logger.Error("failed to check pending session", "session_id", sess.SessionID, "error", err)
			continue
		}

		switch ret.Status {
		case domain.CheckoutStatusComplete:
			j.logger.Info("pending session completed out of band", "session_id", sess.SessionID, "subject", sess.Subject)
			j.service.applyCompletedCheckout(ctx, sess)
		case domain.CheckoutStatusExpired:
			if err := j.service.repo.MarkCheckoutSession(ctx, sess.SessionID, domain.CheckoutStatusExpired); err != nil {
				j.logger.Error("failed to expire checkout session", "session_id", sess.SessionID, "error", err)
			}
		default:
			// Still open at the provider; leave it for the next sweep.
		}
	}

	j.logger.Info("pending checkout sweep finished")
}
