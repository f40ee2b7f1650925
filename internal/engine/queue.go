package engine

import (
	"sync"

	"github.com/roach88/blogsol/internal/ir"
)

// EventType distinguishes queued work.
type EventType int

const (
	// EventTypeInstruction is a signed program instruction.
	EventTypeInstruction EventType = iota + 1
	// EventTypeAirdrop is a runtime credit to an identity.
	EventTypeAirdrop
)

// Event is one unit of queued work. Reply, if set, receives the result once
// the Run loop has processed the event.
type Event struct {
	Type        EventType
	Instruction *ir.Instruction
	Airdrop     *AirdropRequest
	Reply       chan<- Result
}

// Result is what the Run loop reports back for an event.
type Result struct {
	Receipt ir.Receipt
	Airdrop AirdropReceipt
	Err     error
}

// eventQueue is an unbounded, thread-safe FIFO.
//
// RPC handlers enqueue from many goroutines while the Run loop dequeues.
// A buffered signal channel lets the loop wait with a context.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	// Non-blocking: the size-1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	q.events[0] = Event{} // drop references held by the backing array
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that fires when events may be available. It is
// closed when the queue closes.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *eventQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops further enqueues and wakes any waiter.
// Events already queued stay available to TryDequeue.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
