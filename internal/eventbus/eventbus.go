// Package eventbus is a small in-process fan-out used to decouple
// simulation tasks from observers (telemetry bridge, WebSocket hub) without
// either side blocking on the other.
package eventbus

import "sync"

// Event is published by a simulation task at start, stop, or tick error.
type Event struct {
	Task   string
	Kind   string // "started", "stopped", "error"
	Detail string
}

// Bus fans an Event out to every subscriber. Sends never block: a
// subscriber whose channel is full misses the event and the drop is
// counted.
type Bus struct {
	mu       sync.RWMutex
	subs     map[chan Event]struct{}
	Dropped  int64
	dropLock sync.Mutex
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new channel with the given buffer depth. Call
// Unsubscribe when done to release it.
func (b *Bus) Subscribe(buffer int) chan Event {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel obtained from Subscribe.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish fans out ev to every current subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropLock.Lock()
			b.Dropped++
			b.dropLock.Unlock()
		}
	}
}

// Close unsubscribes and closes every outstanding subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
