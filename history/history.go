package history

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/slices"
)

// EventKind distinguishes invocation events from response events.
type EventKind bool

const (
	Invocation EventKind = false
	Response   EventKind = true
)

// Event is one recorded invocation or response. The Id ties a response to
// the invocation it answers.
type Event[T any] struct {
	Kind  EventKind
	Value T
	Id    int64
}

// MissingResponseGenerator decides the fate of an invocation that is still
// pending when a history is completed: given the invocation's input it
// either synthesizes the response the operation is assumed to have produced,
// or returns keep == false to drop the invocation from the history entirely.
type MissingResponseGenerator[T any] func(input T) (response T, keep bool)

// Remove is the generator that drops every pending invocation, treating
// operations that never responded as having had no observable effect.
func Remove[T any](T) (T, bool) {
	var zero T
	return zero, false
}

// History is an append-friendly log of the invocation and response events
// produced while a system under test is exercised concurrently. Invoke,
// Respond and Remove are safe to call from many client goroutines at once.
// The checker never touches a live History: it works on a Clone.
type History[T any] struct {
	nextId atomic.Int64

	mu     sync.Mutex
	events []Event[T]
}

func New[T any]() *History[T] {
	return &History[T]{}
}

// Invoke allocates a fresh correlation id and records an invocation event
// carrying input. The returned id is handed to Respond when the operation
// returns.
func (h *History[T]) Invoke(input T) int64 {
	id := h.nextId.Add(1) - 1
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, Event[T]{Kind: Invocation, Value: input, Id: id})
	return id
}

// Respond records the response event for the operation with the given id.
func (h *History[T]) Respond(id int64, output T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, Event[T]{Kind: Response, Value: output, Id: id})
}

// Remove deletes every event carrying the given id, retracting a
// speculative operation from the log.
func (h *History[T]) Remove(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.events[:0]
	for _, e := range h.events {
		if e.Id != id {
			kept = append(kept, e)
		}
	}
	h.events = kept
}

// Complete fills in a response for every pending invocation, or deletes the
// invocation when the generator declines to produce one. Synthesized
// responses are appended in the invocations' record order, after every
// recorded event.
//
// Complete panics on a malformed history (a response with no pending
// invocation of the same id, or a duplicate response): that is a bug in the
// instrumentation recording the events, not a condition to recover from.
func (h *History[T]) Complete(missing MissingResponseGenerator[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pending := make(map[int64]T)
	responded := make(map[int64]bool)
	var order []int64
	for _, e := range h.events {
		switch e.Kind {
		case Invocation:
			pending[e.Id] = e.Value
			order = append(order, e.Id)
		case Response:
			if responded[e.Id] {
				panic(fmt.Sprintf("history: duplicate response for operation %d", e.Id))
			}
			if _, ok := pending[e.Id]; !ok {
				panic(fmt.Sprintf("history: response for operation %d without a pending invocation", e.Id))
			}
			responded[e.Id] = true
			delete(pending, e.Id)
		}
	}

	drop := make(map[int64]bool)
	for _, id := range order {
		input, ok := pending[id]
		if !ok {
			continue
		}
		if out, keep := missing(input); keep {
			h.events = append(h.events, Event[T]{Kind: Response, Value: out, Id: id})
		} else {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	kept := h.events[:0]
	for _, e := range h.events {
		if !drop[e.Id] {
			kept = append(kept, e)
		}
	}
	h.events = kept
}

// Clone returns a deep, independent copy of the history. The copy shares no
// storage with the original and is safe to mutate from a single goroutine.
func (h *History[T]) Clone() *History[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &History[T]{events: slices.Clone(h.events)}
	c.nextId.Store(h.nextId.Load())
	return c
}

// Size returns the number of recorded events.
func (h *History[T]) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// Events returns a snapshot of the recorded events in arrival order.
func (h *History[T]) Events() []Event[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.events)
}
