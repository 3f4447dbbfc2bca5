/**
 * @description
 * Entitlement summary: usage counters shown on the account page. These are
 * supplementary display data — any failure leaves the counters unset (nil,
 * not zero) and the UI renders a placeholder instead of a misleading "0".
 */
package app

import (
	"context"

	"github.com/myscrollr/uplink-service/internal/domain"
	"github.com/myscrollr/uplink-service/pkg/identity"
)

// EntitlementSummary computes the caller's stream usage counters. It never
// returns an error; an anonymous session or a failed fetch yields a summary
// with unset counters.
func (s *Service) EntitlementSummary(ctx context.Context, sess identity.Session) domain.EntitlementSummary {
	var summary domain.EntitlementSummary
	if !sess.IsAuthenticated() {
		return summary
	}

	s.bestEffort(ctx, "fetch entitlement summary", func() error {
		streams, err := s.streams.GetAll(ctx, sess.Token())
		if err != nil {
			return err
		}

		total := len(streams)
		enabled := 0
		for _, stream := range streams {
			if stream.Enabled {
				enabled++
			}
		}
		summary.TotalItems = &total
		summary.EnabledItems = &enabled
		return nil
	})

	return summary
}
