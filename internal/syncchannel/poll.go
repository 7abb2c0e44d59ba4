package syncchannel

import (
	"context"

	"github.com/sirupsen/logrus"

	"contentflow/internal/logger"
)

// Poll asks the server for changes every interval, carrying the server's timestamp forward.
type Poll struct {
	fetcher Fetcher
	opts    []Option
}

var _ Channel = (*Poll)(nil)

func NewPoll(fetcher Fetcher, opts ...Option) *Poll {
	return &Poll{fetcher: fetcher, opts: opts}
}

func (p *Poll) Subscribe(ctx context.Context, scope string) (*Subscription, error) {
	s := buildSettings(p.opts)
	return startSubscription(ctx, scope, func(ctx context.Context, sub *Subscription) error {
		return p.run(ctx, sub, s)
	})
}

func (p *Poll) run(ctx context.Context, sub *Subscription, s settings) error {
	log := logger.App().WithFields(logrus.Fields{"scope": sub.scope, "transport": "poll"})

	// lastCheck only ever takes values the server returned.
	var lastCheck int64
	failures := 0
	initial := true

	for {
		resp, err := p.fetcher.FetchChanges(ctx, sub.scope, lastCheck)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if terminal(err) {
				return err
			}
			failures++
			if s.exhausted(failures) {
				return transportError("poll", failures, err)
			}
			log.WithError(err).WithField("attempt", failures).Warn("poll failed")

			delay := s.interval
			if initial {
				delay = s.backoffDelay(failures)
			}
			if s.wait(ctx, delay) != nil {
				return nil
			}
			continue
		}
		failures = 0

		if resp.HasChanges || initial {
			b := BatchFromResponse(resp)
			if initial {
				b.Snapshot = true
			}
			if !sub.emit(ctx, b) {
				return nil
			}
		}
		lastCheck = resp.Timestamp
		initial = false

		if s.wait(ctx, s.interval) != nil {
			return nil
		}
	}
}
