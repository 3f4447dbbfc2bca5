package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/myscrollr/uplink-service/internal/domain"
)

// Routing keys for billing lifecycle events published to the topic exchange.
const (
	routingKeyActivated = "billing.subscription.activated"
	routingKeyCanceling = "billing.subscription.canceling"
)

// SubscriptionEvent is the payload published when a subscription changes state.
type SubscriptionEvent struct {
	EventID    string        `json:"event_id"`
	Subject    string        `json:"subject"`
	Tier       domain.Tier   `json:"tier"`
	Period     domain.Period `json:"period"`
	Lifetime   bool          `json:"lifetime"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NopPublisher discards events. Used when no event bus is configured, which
// keeps activation flows identical in single-service deployments.
type NopPublisher struct{}

// Publish implements EventPublisher by doing nothing.
func (NopPublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	return nil
}

// publishSubscriptionEvent emits a lifecycle event, best-effort.
func (s *Service) publishSubscriptionEvent(ctx context.Context, routingKey, subject string, tier domain.Tier, period domain.Period) {
	event := SubscriptionEvent{
		EventID:    uuid.NewString(),
		Subject:    subject,
		Tier:       tier,
		Period:     period,
		Lifetime:   period == domain.PeriodLifetime,
		OccurredAt: time.Now().UTC(),
	}
	s.bestEffort(ctx, "publish "+routingKey, func() error {
		return s.events.Publish(ctx, routingKey, event)
	})
}
