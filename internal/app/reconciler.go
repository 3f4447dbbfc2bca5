/**
 * @description
 * Checkout session reconciliation. When the user lands back on the account
 * page after the payment provider's redirect flow, the page URL carries an
 * opaque session_id query parameter. Reconciliation asks the billing API for
 * that session's final status, activates the subscription on "complete", and
 * always hands back a cleaned URL so the UI can replace its location and a
 * reload cannot re-trigger the lookup.
 *
 * Each session identifier drives at most one status lookup per process
 * lifetime; a database-level terminal-status check covers restarts.
 */
package app

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/myscrollr/uplink-service/internal/domain"
	"github.com/myscrollr/uplink-service/internal/store"
	"github.com/myscrollr/uplink-service/pkg/identity"
)

// sessionParam is the single query parameter reconciliation reads.
const sessionParam = "session_id"

// ReconcileOutcome is the result of handling one page-shown event.
type ReconcileOutcome struct {
	// Handled is true when the URL carried a session identifier.
	Handled bool `json:"handled"`
	// Activated is true only when the provider reported the session complete
	// on this lookup; it drives the UI's dismissible success banner.
	Activated bool `json:"activated"`
	// Status is the provider-reported session status, or "unknown" when the
	// lookup itself failed.
	Status string `json:"status,omitempty"`
	// CleanURL is the page URL with the session identifier stripped. The UI
	// must apply it with a history replacement, not a push.
	CleanURL string `json:"clean_url"`
}

// Reconcile processes a page-shown event for the account page. It never
// returns an error: reconciliation failures are deliberately silent (the
// provider is the source of truth and the user can check account state
// separately), but the URL cleanup always happens.
func (s *Service) Reconcile(ctx context.Context, sess identity.Session, rawURL string) ReconcileOutcome {
	sessionID, cleanURL := splitSessionParam(rawURL)
	if sessionID == "" {
		return ReconcileOutcome{CleanURL: cleanURL}
	}

	// Once-only guard. The first caller for a given session identifier does
	// the lookup; duplicates (re-renders, double navigation) get the cached
	// outcome and concurrent duplicates get a neutral "checking" outcome.
	s.mu.Lock()
	if outcome, ok := s.reconciled[sessionID]; ok {
		s.mu.Unlock()
		outcome.CleanURL = cleanURL
		return outcome
	}
	if s.inflight[sessionID] {
		s.mu.Unlock()
		return ReconcileOutcome{Handled: true, Status: "checking", CleanURL: cleanURL}
	}
	s.inflight[sessionID] = true
	s.mu.Unlock()

	outcome := s.checkSession(ctx, sess, sessionID)
	outcome.CleanURL = cleanURL

	s.mu.Lock()
	delete(s.inflight, sessionID)
	s.reconciled[sessionID] = outcome
	s.mu.Unlock()

	return outcome
}

// checkSession performs the single status lookup and applies side effects.
func (s *Service) checkSession(ctx context.Context, sess identity.Session, sessionID string) ReconcileOutcome {
	outcome := ReconcileOutcome{Handled: true, Status: "unknown"}

	// Sessions already reconciled (by a previous process or the sweep job)
	// must not be re-applied.
	pending, err := s.repo.GetCheckoutSession(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		s.logger.WarnContext(ctx, "checkout session lookup failed", "session_id", sessionID, "error", err)
	}
	if pending != nil && pending.Terminal() {
		outcome.Status = pending.Status
		return outcome
	}

	ret, err := s.billing.GetCheckoutReturn(ctx, sessionID, sess.Token())
	if err != nil {
		// Swallowed: no banner, but cleanup still runs.
		s.logger.WarnContext(ctx, "checkout return lookup failed", "session_id", sessionID, "error", err)
		return outcome
	}

	outcome.Status = ret.Status
	if ret.Status != domain.CheckoutStatusComplete {
		return outcome
	}

	outcome.Activated = true
	if pending == nil {
		// Completed session with no local record (opened by another deployment
		// or lost write). The banner still shows; the projection catches up
		// via the provider's webhook feed into the billing API.
		s.logger.WarnContext(ctx, "completed checkout session has no local record", "session_id", sessionID)
		return outcome
	}

	s.applyCompletedCheckout(ctx, *pending)
	return outcome
}

// splitSessionParam extracts the session identifier from a page URL and
// returns the URL with that parameter removed. An unparsable URL yields the
// URL truncated at its query string, which still satisfies the cleanup
// contract.
func splitSessionParam(rawURL string) (sessionID, cleanURL string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		if i := strings.IndexByte(rawURL, '?'); i >= 0 {
			return "", rawURL[:i]
		}
		return "", rawURL
	}

	q := u.Query()
	sessionID = q.Get(sessionParam)
	q.Del(sessionParam)
	u.RawQuery = q.Encode()
	return sessionID, u.String()
}
