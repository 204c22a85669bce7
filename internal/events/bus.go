package events

import (
	"sync"
	"time"

	"github.com/iotracing/hue-wrapper/internal/models"
)

// Change is published every time a light changes status or color
type Change struct {
	Light models.LightSnapshot `json:"light"`
	// Set when the change was forced by a device failure
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

// Bus fans light changes out to subscribers. Publishing never blocks: a
// subscriber that does not keep up misses changes.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Change
	next int
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Change)}
}

// Publish sends a change to every subscriber. Its signature matches the
// light change hook.
func (b *Bus) Publish(snap models.LightSnapshot, err error) {
	change := Change{Light: snap, Time: time.Now()}
	if err != nil {
		change.Error = err.Error()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// Subscribe returns a channel of changes and a function that cancels the
// subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Change, func()) {
	ch := make(chan Change, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
