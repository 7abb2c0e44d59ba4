package notif

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contentflow/internal/common"
	"contentflow/internal/logger"
)

// AuditObserver writes one audit line per committed change.
type AuditObserver struct {
	log *logrus.Logger
}

func NewAuditObserver() *AuditObserver {
	return &AuditObserver{log: logger.Audit()}
}

func (o *AuditObserver) Name() string { return "audit" }

func (o *AuditObserver) Update(event common.ChangeEvent) error {
	o.log.WithFields(logrus.Fields{
		"action":  event.Action,
		"item_id": event.ItemID,
		"scope":   event.Scope,
		"user_id": event.Actor.UserID,
		"role":    event.Actor.Role,
		"at":      event.At,
	}).Info("item changed")
	return nil
}

// StreamObserver buffers notifications for one push session watching one scope.
//
// Update never blocks. When the buffer is full the notification is dropped: the session
// still has unread notifications, and any notification makes the client refetch the scope.
type StreamObserver struct {
	name  string
	scope string
	ch    chan common.ChangeNotification

	mu      sync.Mutex
	closed  bool
	dropped int
}

func NewStreamObserver(scope string, buffer int) *StreamObserver {
	if buffer <= 0 {
		buffer = 1
	}
	return &StreamObserver{
		name:  "stream-" + uuid.NewString(),
		scope: scope,
		ch:    make(chan common.ChangeNotification, buffer),
	}
}

func (o *StreamObserver) Name() string { return o.name }

func (o *StreamObserver) Scope() string { return o.scope }

func (o *StreamObserver) Update(event common.ChangeEvent) error {
	if event.Scope != o.scope {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	select {
	case o.ch <- event.Notification():
	default:
		o.dropped++
	}
	return nil
}

func (o *StreamObserver) Notifications() <-chan common.ChangeNotification {
	return o.ch
}

// Dropped reports how many notifications were coalesced away because the buffer was full.
func (o *StreamObserver) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Close stops further delivery. It is safe to call more than once.
func (o *StreamObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}
