package service

import (
	"sync"
	"time"
)

// Event reports a change to a stored map or a finished render.
type Event struct {
	Resource string    `json:"resource" doc:"Resource kind" example:"maps"`
	Action   string    `json:"action" doc:"created, updated, deleted or rendered" example:"created"`
	ID       string    `json:"id" doc:"Resource ID" example:"santiago_population"`
	Time     time.Time `json:"time" doc:"When the event happened"`
	Error    string    `json:"error,omitempty" doc:"Failure message of a render"`
}

// EventBus is a fan-out pub/sub for map events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends e to every subscriber without blocking; slow subscribers
// miss events.
func (b *EventBus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
