package syncchannel

import (
	"context"
	"time"
)

// backoffDelay: attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, capped at max.
func (s settings) backoffDelay(attempt int) time.Duration {
	base := s.backoffBase
	if base <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if s.backoffMax > 0 && delay > s.backoffMax/2 {
			delay = s.backoffMax
			break
		}
		delay *= 2
	}
	if s.backoffMax > 0 && delay > s.backoffMax {
		return s.backoffMax
	}
	return delay
}

// wait blocks for d or until ctx is done.
func (s settings) wait(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if d <= 0 {
		return nil
	}
	if s.sleeper != nil {
		s.sleeper(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
