package lincheck

import (
	"fmt"

	"lincheck/history"
)

// entry is one node of the search list: a single event, doubly linked in
// history order behind a sentinel head. An invocation entry points at its
// matched response entry; response entries have a nil match. The id indexes
// the operation's bit in the linearized bitset and is shared by both halves
// of a pair.
type entry[T any] struct {
	value T
	match *entry[T]
	id    int
	prev  *entry[T]
	next  *entry[T]
}

// makeEntries converts a partition's event list into the linked entry list
// and returns the sentinel head. Internal ids are assigned by scanning back
// to front: each response claims the next id counting down from n/2 and an
// invocation inherits the id of its match, so ids are dense in [0, n/2).
//
// A partition that is not fully matched cannot be searched; makeEntries
// panics on an odd event count, a duplicate response, or an unpaired event.
func makeEntries[T any](events []history.Event[T]) *entry[T] {
	if len(events)%2 != 0 {
		panic(fmt.Sprintf("lincheck: mismatch between number of invocations and responses: %d events", len(events)))
	}
	id := len(events) / 2
	responses := make(map[int64]*entry[T])
	var root *entry[T]
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		var e *entry[T]
		switch ev.Kind {
		case history.Response:
			if responses[ev.Id] != nil {
				panic(fmt.Sprintf("lincheck: duplicate response for operation %d", ev.Id))
			}
			id--
			e = &entry[T]{value: ev.Value, id: id}
			responses[ev.Id] = e
		case history.Invocation:
			m := responses[ev.Id]
			if m == nil {
				panic(fmt.Sprintf("lincheck: invocation %d has no matching response", ev.Id))
			}
			delete(responses, ev.Id)
			e = &entry[T]{value: ev.Value, match: m, id: m.id}
		}
		e.next = root
		if root != nil {
			root.prev = e
		}
		root = e
	}
	if len(responses) != 0 {
		panic(fmt.Sprintf("lincheck: %d responses have no matching invocation", len(responses)))
	}
	head := &entry[T]{id: -1, next: root}
	if root != nil {
		root.prev = head
	}
	return head
}

// lift unlinks an invocation entry and its matched response from the list,
// committing the operation to the linearization being explored. The
// neighbors stay connected, so the removal is undone in O(1) by unlift.
func lift[T any](e *entry[T]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	m := e.match
	m.prev.next = m.next
	if m.next != nil {
		m.next.prev = m.prev
	}
}

// unlift reinserts a lifted pair at its original position. Lifts and
// unlifts must nest LIFO: a response entry only becomes reachable again by
// undoing the lift that removed its invocation, so unlift always reverses
// the most recent lift.
func unlift[T any](e *entry[T]) {
	m := e.match
	m.prev.next = m
	if m.next != nil {
		m.next.prev = m
	}
	e.prev.next = e
	e.next.prev = e
}
