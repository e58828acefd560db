package entity

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize bounds the notifier ring when no size is given
const DefaultQueueSize = 4096

// DataAdded is submitted when a runtime entity gains a kind
type DataAdded struct {
	Entity ID
	Kind   Accessor
}

// DataModified is submitted on the first Modify of a kind within a tick
type DataModified struct {
	Entity ID
	Kind   Accessor
}

// DataRemoved is submitted when a runtime entity loses a kind
type DataRemoved struct {
	Entity ID
	Kind   Accessor
}

// EventNotifier buffers events until Dispatch delivers them to typed
// subscribers on the calling goroutine.
// Submit is safe for concurrent producers. When the ring is full the oldest
// event is overwritten and counted as dropped.
type EventNotifier struct {
	mu    sync.Mutex
	ring  []any
	head  int
	count int

	handlersMu sync.RWMutex
	handlers   map[reflect.Type][]func(any)

	dropped    atomic.Uint64
	dispatched atomic.Uint64
}

func NewEventNotifier(size int) *EventNotifier {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &EventNotifier{
		ring:     make([]any, size),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

// Subscribe registers handler for events of exactly type T.
// Handlers run in subscription order.
func Subscribe[T any](n *EventNotifier, handler func(T)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	n.handlersMu.Lock()
	n.handlers[t] = append(n.handlers[t], func(ev any) { handler(ev.(T)) })
	n.handlersMu.Unlock()
}

// Submit queues an event. It never blocks on handlers.
func (n *EventNotifier) Submit(event any) {
	n.mu.Lock()
	defer n.mu.Unlock()

	size := len(n.ring)
	if n.count == size {
		// Overwrite oldest
		n.ring[n.head] = nil
		n.head = (n.head + 1) % size
		n.count--
		n.dropped.Add(1)
	}
	n.ring[(n.head+n.count)%size] = event
	n.count++
}

// Dispatch drains the queue in FIFO order and returns the number of events
// delivered. Events submitted by handlers are delivered by the next call.
func (n *EventNotifier) Dispatch() int {
	batch := n.drain()

	for _, ev := range batch {
		n.handlersMu.RLock()
		hs := n.handlers[reflect.TypeOf(ev)]
		n.handlersMu.RUnlock()

		for _, h := range hs {
			h(ev)
		}
	}
	n.dispatched.Add(uint64(len(batch)))
	return len(batch)
}

func (n *EventNotifier) drain() []any {
	n.mu.Lock()
	defer n.mu.Unlock()

	batch := make([]any, n.count)
	size := len(n.ring)
	for i := range batch {
		idx := (n.head + i) % size
		batch[i] = n.ring[idx]
		n.ring[idx] = nil
	}
	n.head, n.count = 0, 0
	return batch
}

// TransferTo moves every queued event to dst without delivering it
func (n *EventNotifier) TransferTo(dst *EventNotifier) int {
	batch := n.drain()
	for _, ev := range batch {
		dst.Submit(ev)
	}
	return len(batch)
}

// Pending returns the number of queued events
func (n *EventNotifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// Dropped returns how many events were overwritten before dispatch
func (n *EventNotifier) Dropped() uint64 { return n.dropped.Load() }

// Dispatched returns how many events have been delivered
func (n *EventNotifier) Dispatched() uint64 { return n.dispatched.Load() }
