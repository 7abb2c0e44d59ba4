package notif

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentflow/internal/common"
)

type recordingObserver struct {
	name string
	fail bool

	mu     sync.Mutex
	events []common.ChangeEvent
}

func (o *recordingObserver) Name() string { return o.name }

func (o *recordingObserver) Update(e common.ChangeEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
	if o.fail {
		return errors.New("observer down")
	}
	return nil
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.events)
}

func event(id string) common.ChangeEvent {
	return common.ChangeEvent{Action: common.ActionUpdate, ItemID: id, Scope: "brand-a", At: time.Now()}
}

func TestHub_NotifyReachesEveryObserver(t *testing.T) {
	hub := NewHub(2, 10)
	defer hub.Shutdown()

	a := &recordingObserver{name: "a"}
	b := &recordingObserver{name: "b", fail: true}
	hub.Subscribe(a)
	hub.Subscribe(b)
	assert.Equal(t, 2, hub.ObserverCount())

	hub.Notify(event("1"))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count(), "a failing observer still receives events")

	hub.Unsubscribe(b)
	hub.Notify(event("2"))
	assert.Equal(t, 2, a.count())
	assert.Equal(t, 1, b.count())
}

func TestHub_NotifyAsync(t *testing.T) {
	hub := NewHub(3, 100)
	defer hub.Shutdown()

	obs := &recordingObserver{name: "a"}
	hub.Subscribe(obs)

	for i := 0; i < 50; i++ {
		hub.NotifyAsync(event("x"))
	}
	assert.Eventually(t, func() bool { return obs.count() == 50 }, time.Second, 5*time.Millisecond)
}

func TestHub_FullQueueDeliversInline(t *testing.T) {
	// with no buffer most sends take the inline path
	hub := NewHub(1, 0)
	defer hub.Shutdown()

	obs := &recordingObserver{name: "a"}
	hub.Subscribe(obs)

	for i := 0; i < 20; i++ {
		hub.NotifyAsync(event("x"))
	}
	assert.Eventually(t, func() bool { return obs.count() == 20 }, time.Second, 5*time.Millisecond)
}

func TestHub_ShutdownClosesDone(t *testing.T) {
	hub := NewHub(1, 1)
	hub.Shutdown()

	select {
	case <-hub.Done():
	default:
		t.Fatal("Done not closed after Shutdown")
	}
	// no panic after shutdown
	hub.NotifyAsync(event("late"))
}

func TestStreamObserver(t *testing.T) {
	obs := NewStreamObserver("brand-a", 2)
	require.Contains(t, obs.Name(), "stream-")

	require.NoError(t, obs.Update(common.ChangeEvent{Action: common.ActionCreate, ItemID: "1", Scope: "brand-a"}))
	require.NoError(t, obs.Update(common.ChangeEvent{Action: common.ActionCreate, ItemID: "other", Scope: "brand-b"}))
	require.NoError(t, obs.Update(common.ChangeEvent{Action: common.ActionDelete, ItemID: "2", Scope: "brand-a"}))
	require.NoError(t, obs.Update(common.ChangeEvent{Action: common.ActionUpdate, ItemID: "3", Scope: "brand-a"}))

	assert.Equal(t, common.ChangeNotification{Action: common.ActionCreate, ItemID: "1"}, <-obs.Notifications())
	assert.Equal(t, common.ChangeNotification{Action: common.ActionDelete, ItemID: "2"}, <-obs.Notifications())
	assert.Equal(t, 1, obs.Dropped())

	obs.Close()
	obs.Close()
	require.NoError(t, obs.Update(common.ChangeEvent{Scope: "brand-a", ItemID: "4"}))
	_, ok := <-obs.Notifications()
	assert.False(t, ok)
}
