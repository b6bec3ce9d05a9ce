// Package events implements the bounded-queue event fan-out of spec.md
// §4.7: each subscriber gets its own bounded channel and drain goroutine;
// overflow and panics are observed, never propagated to publishers.
package events

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cordio/taskd/internal/model"
)

// DefaultQueueCapacity is the default per-subscriber bounded queue size.
const DefaultQueueCapacity = 2048

// Subscriber consumes the event stream. OnEvent must be side-effect safe
// and fast; a slow subscriber should hand events off to its own queue
// rather than block inside OnEvent.
type Subscriber interface {
	Name() string
	QueueCapacity() int
	OnEvent(e model.Event)
}

type subscription struct {
	sub   Subscriber
	queue chan model.Event
	done  chan struct{}
}

// Bus fans events out to subscribers with bounded, independent queues.
type Bus struct {
	log *logrus.Entry

	mu   sync.RWMutex
	subs map[string]*subscription
}

// NewBus creates an empty Bus.
func NewBus(log *logrus.Entry) *Bus {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Bus{log: log, subs: make(map[string]*subscription)}
}

// Subscribe registers sub and starts its drain goroutine.
func (b *Bus) Subscribe(sub Subscriber) {
	cap := sub.QueueCapacity()
	if cap <= 0 {
		cap = DefaultQueueCapacity
	}
	s := &subscription{
		sub:   sub,
		queue: make(chan model.Event, cap),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[sub.Name()] = s
	b.mu.Unlock()

	go b.drain(s)
}

// Unsubscribe stops sub's drain goroutine and removes it from the bus.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	s, ok := b.subs[name]
	if ok {
		delete(b.subs, name)
	}
	b.mu.Unlock()
	if ok {
		close(s.done)
	}
}

// Publish pushes e to every subscriber's queue on a best-effort, non-blocking
// path: a full queue drops the event and emits SubscriberOverflow for that
// subscriber instead of blocking the publisher.
func (b *Bus) Publish(e model.Event) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.queue <- e:
		default:
			b.log.WithField("subscriber", s.sub.Name()).Warn("subscriber queue full, dropping event")
			// Publish the overflow notice itself on the same best-effort
			// path, to the *other* subscribers, avoiding unbounded
			// recursion into the overflowing subscriber's own queue.
			b.notifyOthers(s.sub.Name(), model.Event{Kind: model.EventSubscriberOverflow, Name: s.sub.Name()})
		}
	}
}

func (b *Bus) notifyOthers(except string, e model.Event) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for name, s := range b.subs {
		if name != except {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()
	for _, s := range subs {
		select {
		case s.queue <- e:
		default:
		}
	}
}

func (b *Bus) drain(s *subscription) {
	for {
		select {
		case <-s.done:
			return
		case e := <-s.queue:
			b.invoke(s, e)
		}
	}
}

func (b *Bus) invoke(s *subscription, e model.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{"subscriber": s.sub.Name(), "panic": r}).
				Error("subscriber panicked")
			b.notifyOthers(s.sub.Name(), model.Event{Kind: model.EventSubscriberPanicked, Name: s.sub.Name()})
		}
	}()
	s.sub.OnEvent(e)
}
