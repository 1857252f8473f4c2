package multiplayer

import "sync"

// EventQueue delivers events from the duel machinery to a consumer.
//
// In lossy mode SessionUpdatedEvent values are dropped when the buffer is
// full; the consumer can always read the latest session directly. Every
// other event waits for buffer space until the queue is closed.
type EventQueue struct {
	events   chan Event
	lossy    bool
	done     chan struct{}
	doneOnce sync.Once
}

// NewEventQueue creates a queue. bufferSize below 1 means 64.
func NewEventQueue(bufferSize int, lossy bool) *EventQueue {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &EventQueue{
		events: make(chan Event, bufferSize),
		lossy:  lossy,
		done:   make(chan struct{}),
	}
}

// Send enqueues evt. It returns false if the event was dropped or the queue
// is closed.
func (q *EventQueue) Send(evt Event) bool {
	select {
	case <-q.done:
		return false
	default:
	}

	if _, update := evt.(SessionUpdatedEvent); update && q.lossy {
		select {
		case q.events <- evt:
			return true
		default:
			return false
		}
	}

	select {
	case q.events <- evt:
		return true
	case <-q.done:
		return false
	}
}

// Events returns the channel to receive events from.
func (q *EventQueue) Events() <-chan Event {
	return q.events
}

// Done returns a channel that is closed by Close.
func (q *EventQueue) Done() <-chan struct{} {
	return q.done
}

// Close stops delivery. Safe to call multiple times.
func (q *EventQueue) Close() {
	q.doneOnce.Do(func() {
		close(q.done)
	})
}
