package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordio/taskd/internal/model"
)

type recordingSub struct {
	name string
	cap  int
	mu   sync.Mutex
	recv []model.Event
}

func (r *recordingSub) Name() string       { return r.name }
func (r *recordingSub) QueueCapacity() int { return r.cap }
func (r *recordingSub) OnEvent(e model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recv = append(r.recv, e)
}
func (r *recordingSub) events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.recv))
	copy(out, r.recv)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPublishDeliversInOrderPerSubscriber(t *testing.T) {
	bus := NewBus(nil)
	sub := &recordingSub{name: "a", cap: 16}
	bus.Subscribe(sub)

	for i := 0; i < 5; i++ {
		bus.Publish(model.Event{Kind: model.EventTaskStarting, Attempt: uint64(i)})
	}

	waitFor(t, func() bool { return len(sub.events()) == 5 })
	got := sub.events()
	for i, e := range got {
		assert.Equal(t, uint64(i), e.Attempt)
	}
}

func TestPublishOverflowDropsAndNotifies(t *testing.T) {
	bus := NewBus(nil)
	slow := &recordingSub{name: "slow", cap: 1}
	observer := &recordingSub{name: "observer", cap: 16}
	bus.Subscribe(slow)
	bus.Subscribe(observer)

	for i := 0; i < 50; i++ {
		bus.Publish(model.Event{Kind: model.EventTaskStarting})
	}

	waitFor(t, func() bool {
		for _, e := range observer.events() {
			if e.Kind == model.EventSubscriberOverflow && e.Name == "slow" {
				return true
			}
		}
		return false
	})
}

func TestPanickingSubscriberEmitsSubscriberPanicked(t *testing.T) {
	bus := NewBus(nil)
	observer := &recordingSub{name: "observer", cap: 16}
	bus.Subscribe(observer)

	panicker := &panicSub{name: "boom", cap: 16}
	bus.Subscribe(panicker)

	bus.Publish(model.Event{Kind: model.EventTaskStarting})

	waitFor(t, func() bool {
		for _, e := range observer.events() {
			if e.Kind == model.EventSubscriberPanicked && e.Name == "boom" {
				return true
			}
		}
		return false
	})
}

type panicSub struct {
	name string
	cap  int
}

func (p *panicSub) Name() string          { return p.name }
func (p *panicSub) QueueCapacity() int    { return p.cap }
func (p *panicSub) OnEvent(model.Event)   { panic("boom") }

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(nil)
	sub := &recordingSub{name: "a", cap: 16}
	bus.Subscribe(sub)
	bus.Publish(model.Event{Kind: model.EventTaskStarting})
	waitFor(t, func() bool { return len(sub.events()) == 1 })

	bus.Unsubscribe("a")
	bus.Publish(model.Event{Kind: model.EventTaskStarting})
	time.Sleep(20 * time.Millisecond)
	require.Len(t, sub.events(), 1)
}
