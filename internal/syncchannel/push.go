package syncchannel

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"contentflow/internal/common"
	"contentflow/internal/logger"
)

// Push holds one notification connection per subscription. A notification is only a hint:
// every one triggers a full refetch of the scope, and notifications that arrive during a
// refetch fold into a single follow-up refetch.
type Push struct {
	fetcher Fetcher
	dialer  Dialer
	opts    []Option
}

var _ Channel = (*Push)(nil)

func NewPush(fetcher Fetcher, dialer Dialer, opts ...Option) *Push {
	return &Push{fetcher: fetcher, dialer: dialer, opts: opts}
}

func (p *Push) Subscribe(ctx context.Context, scope string) (*Subscription, error) {
	s := buildSettings(p.opts)
	w := &pushWorker{push: p, settings: s}
	return startSubscription(ctx, scope, func(ctx context.Context, sub *Subscription) error {
		w.sub = sub
		w.log = logger.App().WithFields(logrus.Fields{"scope": scope, "transport": "push"})
		return w.run(ctx)
	})
}

type pushWorker struct {
	push     *Push
	settings settings
	sub      *Subscription
	log      *logrus.Entry

	// known is the id set of the last emitted snapshot.
	known    map[string]struct{}
	failures int
}

func (w *pushWorker) run(ctx context.Context) error {
	for {
		stream, err := w.push.dialer.Dial(ctx, w.sub.scope)
		if ctx.Err() != nil {
			if stream != nil {
				_ = stream.Close()
			}
			return nil
		}
		if err != nil {
			if stop, err := w.fail("dial", err); stop {
				return err
			}
			if w.settings.wait(ctx, w.settings.backoffDelay(w.failures)) != nil {
				return nil
			}
			continue
		}

		err = w.serve(ctx, stream)
		if ctx.Err() != nil {
			return nil
		}
		if stop, err := w.fail("stream", err); stop {
			return err
		}
		if w.settings.wait(ctx, w.settings.backoffDelay(w.failures)) != nil {
			return nil
		}
	}
}

// fail records a transport failure and reports whether the subscription must end.
func (w *pushWorker) fail(op string, err error) (bool, error) {
	if terminal(err) {
		return true, err
	}
	w.failures++
	if w.settings.exhausted(w.failures) {
		return true, transportError(op, w.failures, err)
	}
	w.log.WithError(err).WithField("attempt", w.failures).Warn("push " + op + " failed, reconnecting")
	return false, nil
}

// serve consumes one connection until it drops or ctx is done. The reader goroutine is
// always joined before serve returns.
func (w *pushWorker) serve(ctx context.Context, stream NotificationStream) error {
	dirty := make(chan struct{}, 1)
	readErr := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			n, err := stream.Recv()
			if err != nil {
				readErr <- err
				return
			}
			if n.Type != "" && n.Type != common.NotificationConnected {
				continue
			}
			select {
			case dirty <- struct{}{}:
			default:
			}
		}
	}()
	defer func() {
		_ = stream.Close()
		wg.Wait()
	}()

	// Whatever changed while disconnected is picked up by one refetch on connect.
	select {
	case dirty <- struct{}{}:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case <-dirty:
			// A failed refetch drops the connection; the reconnect refetches again.
			if err := w.refetch(ctx); err != nil {
				return err
			}
			w.failures = 0
		}
	}
}

func (w *pushWorker) refetch(ctx context.Context) error {
	resp, err := w.push.fetcher.FetchChanges(ctx, w.sub.scope, 0)
	if err != nil {
		return err
	}

	current := make(map[string]struct{}, len(resp.Items))
	for _, it := range resp.Items {
		current[it.ID] = struct{}{}
	}
	deleted := []string{}
	for id := range w.known {
		if _, ok := current[id]; !ok {
			deleted = append(deleted, id)
		}
	}

	b := BatchFromResponse(resp)
	b.Snapshot = true
	b.DeletedIDs = deleted
	if !w.sub.emit(ctx, b) {
		return nil
	}
	w.known = current
	return nil
}
