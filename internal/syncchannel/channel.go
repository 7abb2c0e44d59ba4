// Package syncchannel delivers authoritative item changes for one scope to a client,
// either over a persistent push connection or by interval polling.
package syncchannel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"contentflow/internal/common"
	"contentflow/internal/config"
)

// ChangeBatch is one unit of authoritative state. A Snapshot batch carries the whole scope,
// so ids missing from Changed are gone even when DeletedIDs does not list them.
type ChangeBatch struct {
	Changed    []common.Item
	DeletedIDs []string
	AsOf       time.Time
	Snapshot   bool
}

// Fetcher reads a scope from the server. since is epoch milliseconds; 0 asks for a snapshot.
type Fetcher interface {
	FetchChanges(ctx context.Context, scope string, since int64) (common.PollResponse, error)
}

// NotificationStream is one live push connection.
type NotificationStream interface {
	Recv() (common.ChangeNotification, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, scope string) (NotificationStream, error)
}

type Channel interface {
	Subscribe(ctx context.Context, scope string) (*Subscription, error)
}

type Mode string

const (
	ModePush Mode = "push"
	ModeGRPC Mode = "grpc"
	ModePoll Mode = "poll"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePush, ModeGRPC, ModePoll:
		return m, nil
	}
	return "", common.NewValidationError("mode", "must be one of push, grpc, poll, got %q", s)
}

type settings struct {
	interval    time.Duration
	backoffBase time.Duration
	backoffMax  time.Duration
	maxRetries  int
	sleeper     func(time.Duration)
}

func defaultSettings() settings {
	return settings{
		interval:    3 * time.Second,
		backoffBase: 500 * time.Millisecond,
		backoffMax:  30 * time.Second,
	}
}

type Option func(*settings)

func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRetryBackoff overrides the reconnect backoff delays.
func WithRetryBackoff(base, max time.Duration) Option {
	return func(s *settings) {
		s.backoffBase = base
		s.backoffMax = max
	}
}

// WithMaxRetries ends a subscription after n consecutive transport failures. 0 retries forever.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithSleeper overrides how waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(s *settings) {
		s.sleeper = sleeper
	}
}

func FromConfig(cfg config.SyncConfig) []Option {
	return []Option{
		WithInterval(cfg.PollInterval),
		WithRetryBackoff(cfg.BackoffBase, cfg.BackoffMax),
		WithMaxRetries(cfg.MaxRetries),
	}
}

func buildSettings(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// exhausted reports whether failures has gone past the retry ceiling.
func (s settings) exhausted(failures int) bool {
	return s.maxRetries > 0 && failures > s.maxRetries
}

// Subscription is a running worker for one scope. Batches is closed when the worker exits.
type Subscription struct {
	scope   string
	batches chan ChangeBatch
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

func startSubscription(parent context.Context, scope string, run func(ctx context.Context, sub *Subscription) error) (*Subscription, error) {
	if err := common.ValidateScope(scope); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(parent)
	sub := &Subscription{
		scope:   scope,
		batches: make(chan ChangeBatch),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(sub.done)
		defer close(sub.batches)
		err := run(ctx, sub)
		if err != nil && ctx.Err() == nil {
			sub.mu.Lock()
			sub.err = err
			sub.mu.Unlock()
		}
	}()
	return sub, nil
}

func (s *Subscription) Scope() string {
	return s.scope
}

func (s *Subscription) Batches() <-chan ChangeBatch {
	return s.batches
}

// Unsubscribe stops the worker and waits for it, so nothing touches the network once it returns.
func (s *Subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}

// Done is closed when the worker has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err is the terminal error, if any, once Batches has been closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// emit hands b to the consumer, or gives up when the subscription is cancelled.
func (s *Subscription) emit(ctx context.Context, b ChangeBatch) bool {
	select {
	case s.batches <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// BatchFromResponse converts one GET /items body into a batch.
func BatchFromResponse(resp common.PollResponse) ChangeBatch {
	return ChangeBatch{
		Changed:    resp.Items,
		DeletedIDs: resp.DeletedIDs,
		AsOf:       common.FromUnixMilli(resp.Timestamp),
		Snapshot:   resp.Snapshot,
	}
}

// terminal errors end a subscription at once: retrying cannot fix them.
func terminal(err error) bool {
	return common.IsPermission(err) || common.IsValidation(err)
}

func transportError(op string, attempts int, err error) error {
	if common.IsTransport(err) {
		return err
	}
	return &common.TransportError{Op: op, Attempts: attempts, Err: fmt.Errorf("%s: %w", op, err)}
}
