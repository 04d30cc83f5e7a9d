// Package events carries change notifications between the ledger and its
// observers, and the feedback hook points (sound, tray notification, ...).
package events

import (
	"sync"
	"time"

	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/logger"
)

// Event is a change notification
type Event struct {
	Name       constants.EventName
	UserID     string
	ActivityID string
	DepositID  string
	At         time.Time
}

// HookEvent is delivered to feedback hooks
type HookEvent struct {
	Name    constants.HookName
	UserID  string
	Amount  int64 // milliseconds involved (deposited, consumed, ...)
	Message string
}

// Handler receives events synchronously on the publisher's goroutine
type Handler func(Event)

// Hook receives feedback events on its own goroutine
type Hook func(HookEvent)

type subscriber struct {
	id      int
	names   map[constants.EventName]bool // empty = all
	handler Handler
	ch      chan Event
}

func (s *subscriber) wants(name constants.EventName) bool {
	return len(s.names) == 0 || s.names[name]
}

// Bus is an in-process publish/subscribe hub
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	hooks  map[constants.HookName][]hookEntry
	nextID int
	wg     sync.WaitGroup
}

type hookEntry struct {
	id   int
	hook Hook
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		hooks: make(map[constants.HookName][]hookEntry),
	}
}

// On registers a handler for the named events (all events when none are given).
// The returned function unregisters it.
func (b *Bus) On(handler Handler, names ...constants.EventName) func() {
	return b.add(&subscriber{handler: handler, names: nameSet(names)})
}

// Subscribe returns a buffered channel receiving the named events (all events
// when none are given). Events are dropped when the channel is full. The
// returned function unsubscribes and closes the channel.
func (b *Bus) Subscribe(names ...constants.EventName) (<-chan Event, func()) {
	ch := make(chan Event, constants.EventSubscriberBufferLen)
	cancel := b.add(&subscriber{ch: ch, names: nameSet(names)})
	return ch, cancel
}

func (b *Bus) add(s *subscriber) func() {
	b.mu.Lock()
	b.nextID++
	s.id = b.nextID
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s.id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			if s.ch != nil {
				close(s.ch)
			}
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every interested subscriber. It never blocks on a
// slow channel subscriber.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	var handlers []Handler
	for _, s := range b.subs {
		if !s.wants(e.Name) {
			continue
		}
		if s.handler != nil {
			handlers = append(handlers, s.handler)
			continue
		}
		select {
		case s.ch <- e:
		default:
			logger.Warn("Dropping event for slow subscriber", "event", e.Name, "subscriber", s.id)
		}
	}
	b.mu.RUnlock()

	// handlers run outside the lock so they may publish or unsubscribe
	for _, h := range handlers {
		h(e)
	}
}

// OnHook registers a feedback hook. The returned function unregisters it.
func (b *Bus) OnHook(name constants.HookName, hook Hook) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.hooks[name] = append(b.hooks[name], hookEntry{id: id, hook: hook})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.hooks[name]
		for i, e := range entries {
			if e.id == id {
				b.hooks[name] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Fire runs every hook registered for e.Name on its own goroutine and returns
// immediately.
func (b *Bus) Fire(e HookEvent) {
	b.mu.RLock()
	entries := append([]hookEntry(nil), b.hooks[e.Name]...)
	b.mu.RUnlock()

	for _, entry := range entries {
		b.wg.Add(1)
		go func(h Hook) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Feedback hook panicked", "hook", e.Name, "panic", r)
				}
			}()
			h(e)
		}(entry.hook)
	}
}

// Wait blocks until all fired hooks have returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}

func nameSet(names []constants.EventName) map[constants.EventName]bool {
	set := make(map[constants.EventName]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
