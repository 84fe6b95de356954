package eventlog

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"readinglab-backend/internal/models"
)

// Observer receives a newest-first snapshot of the log after every append.
// The slice belongs to the observer.
type Observer func(snapshot []models.Event)

type subscription struct {
	id     uint64
	fn     Observer
	active atomic.Bool
}

// Broker fans store changes out to registered observers.
type Broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   []*subscription
}

func NewBroker() *Broker {
	return &Broker{}
}

// Subscribe registers fn and returns a function that removes it. The returned
// function may be called any number of times.
func (b *Broker) Subscribe(fn Observer) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	sub := &subscription{id: b.nextID, fn: fn}
	sub.active.Store(true)
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return func() { b.remove(sub) }
}

func (b *Broker) remove(sub *subscription) {
	if !sub.active.CompareAndSwap(true, false) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s != sub {
			kept = append(kept, s)
		}
	}
	b.subs = kept
}

// Count returns the number of registered observers.
func (b *Broker) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish calls every observer in registration order on the calling goroutine.
// Observers registered during the fan-out wait for the next publish; observers
// removed during it are skipped.
func (b *Broker) Publish(snapshot []models.Event) {
	b.mu.Lock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		own := make([]models.Event, len(snapshot))
		copy(own, snapshot)
		b.deliver(sub, own)
	}
}

func (b *Broker) deliver(sub *subscription, snapshot []models.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventlog: observer %d panic: %v\n%s", sub.id, r, debug.Stack())
		}
	}()
	sub.fn(snapshot)
}
