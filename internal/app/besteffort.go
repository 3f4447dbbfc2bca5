package app

import "context"

// bestEffort runs fn and logs, but otherwise swallows, its error. It exists to
// make intentionally non-critical paths visible in code: usage counters, event
// publication and role grants are supplementary and must never fail or block
// the operation that triggered them.
func (s *Service) bestEffort(ctx context.Context, op string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.WarnContext(ctx, "best-effort operation failed", "op", op, "error", err)
	}
}
