package notif

import (
	"context"
	"sync"

	"contentflow/internal/common"
	"contentflow/internal/logger"
)

// Hub fans committed change events out to observers through a small worker pool.
type Hub struct {
	observers    map[string]common.Observer
	eventChannel chan common.ChangeEvent
	workerPool   int
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

var _ common.Subject = (*Hub)(nil)

func NewHub(workerPoolSize, bufferSize int) *Hub {
	if workerPoolSize <= 0 {
		workerPoolSize = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		observers:    make(map[string]common.Observer),
		eventChannel: make(chan common.ChangeEvent, bufferSize),
		workerPool:   workerPoolSize,
		ctx:          ctx,
		cancel:       cancel,
	}

	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go h.processEvents()
	}

	return h
}

func (h *Hub) Subscribe(observer common.Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers[observer.Name()] = observer
	logger.App().WithField("observer", observer.Name()).Debug("observer subscribed")
}

func (h *Hub) Unsubscribe(observer common.Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.observers, observer.Name())
	logger.App().WithField("observer", observer.Name()).Debug("observer unsubscribed")
}

func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Notify delivers event to every observer on the calling goroutine.
func (h *Hub) Notify(event common.ChangeEvent) {
	h.mu.RLock()
	observers := make([]common.Observer, 0, len(h.observers))
	for _, obs := range h.observers {
		observers = append(observers, obs)
	}
	h.mu.RUnlock()

	for _, observer := range observers {
		if err := observer.Update(event); err != nil {
			logger.App().WithError(err).WithField("observer", observer.Name()).Warn("observer update failed")
		}
	}
}

// NotifyAsync queues event for the workers. When the queue is full the event is
// delivered inline, so a burst slows the writer down instead of losing a change.
func (h *Hub) NotifyAsync(event common.ChangeEvent) {
	select {
	case <-h.ctx.Done():
		return
	default:
	}

	select {
	case h.eventChannel <- event:
	default:
		logger.App().WithField("item_id", event.ItemID).Warn("change queue full, delivering inline")
		h.Notify(event)
	}
}

func (h *Hub) processEvents() {
	defer h.wg.Done()

	for {
		select {
		case event := <-h.eventChannel:
			h.Notify(event)
		case <-h.ctx.Done():
			return
		}
	}
}

// Done is closed once Shutdown starts. Push sessions end when it fires.
func (h *Hub) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Shutdown stops the workers. Queued events that were not yet picked up are dropped.
func (h *Hub) Shutdown() {
	h.cancel()
	h.wg.Wait()
	logger.App().Info("change hub shutdown complete")
}
