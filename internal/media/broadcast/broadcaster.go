// Package broadcast fans asset status events out to connected observers.
//
// Delivery is at-most-once per observer with no backlog: an observer that
// is not connected when an event is published never receives it, and a
// reconnecting observer reconciles missed transitions by listing its
// assets. This is a deliberate trade of delivery guarantees for
// simplicity.
package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shandysiswandi/gostream/internal/media/entity"
)

// Subscriber is one live observer. Its channel closes on disconnect.
type Subscriber struct {
	id     int64
	events chan entity.StatusEvent
	once   sync.Once
}

// Events returns the channel delivering status events to this subscriber.
func (s *Subscriber) Events() <-chan entity.StatusEvent {
	return s.events
}

func (s *Subscriber) close() {
	s.once.Do(func() {
		close(s.events)
	})
}

// IDGenerator produces unique numeric subscriber handles.
type IDGenerator interface {
	Generate() int64
}

type Broadcaster struct {
	ids    IDGenerator
	buffer int

	mu     sync.RWMutex
	closed bool
	subs   map[int64]*Subscriber
}

// DefaultSubscriberBuffer is the per-subscriber channel capacity used when
// New receives a non-positive buffer.
const DefaultSubscriberBuffer = 16

func New(ids IDGenerator, buffer int) *Broadcaster {
	if ids == nil {
		ids = &sequence{}
	}

	if buffer < 1 {
		buffer = DefaultSubscriberBuffer
	}

	return &Broadcaster{
		ids:    ids,
		buffer: buffer,
		subs:   make(map[int64]*Subscriber),
	}
}

// Connect registers a new observer. After Close, the returned subscriber's
// channel is already closed.
func (b *Broadcaster) Connect() *Subscriber {
	sub := &Subscriber{
		id:     b.ids.Generate(),
		events: make(chan entity.StatusEvent, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		sub.close()
		return sub
	}

	b.subs[sub.id] = sub

	return sub
}

// Disconnect deregisters the observer and closes its channel. Safe to call
// more than once; publishes in flight to other observers are unaffected.
func (b *Broadcaster) Disconnect(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, sub.id)
	sub.close()
}

// Publish delivers the event to every observer registered at this instant,
// at most once each. A subscriber whose buffer is full loses the event;
// delivery to the others is unaffected.
func (b *Broadcaster) Publish(event entity.StatusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.events <- event:
		default:
			slog.Warn("dropping status event for slow observer",
				"observer_id", sub.id, "asset_id", event.AssetID)
		}
	}
}

// Close disconnects every observer. Subsequent Connect calls hand back
// already-closed subscribers.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.close()
	}

	return nil
}

type sequence struct {
	n atomic.Int64
}

func (s *sequence) Generate() int64 {
	return s.n.Add(1)
}
