package lincheck

import "lincheck/history"

// callFrame records one committed choice for backtracking: the lifted entry
// and the spec state in force before its transition was applied.
type callFrame[S comparable, T any] struct {
	entry *entry[T]
	state S
}

// checkPartition decides whether one partition is linearizable: whether some
// total order of its operations, consistent with each operation's
// invocation/response span, replays validly through the spec's transition
// function. It is an exhaustive depth-first search over the entry list with
// an explicit call stack, memoizing visited (state, linearized-set)
// configurations. Single-threaded and synchronous; the caller bounds
// latency, the search itself carries no deadline.
func checkPartition[S comparable, T any](spec SequentialSpec[S, T], events []history.Event[T]) bool {
	head := makeEntries(events)
	linearized := newBitset(len(events) / 2)
	memo := newCache[S](len(linearized))
	var calls []callFrame[S, T]

	state := spec.InitialState()
	e := head.next
	for head.next != nil {
		if e.match != nil {
			// Invocation: try to linearize this operation next.
			next, ok := spec.NextState(state, e.value, e.match.value)
			if ok {
				linearized.set(e.id)
				if memo.add(next, linearized) {
					calls = append(calls, callFrame[S, T]{entry: e, state: state})
					state = next
					lift(e)
					e = head.next
					continue
				}
				// Equivalent configuration already explored.
				linearized.clear(e.id)
			}
			e = e.next
			continue
		}
		// Response whose invocation has not been lifted: nothing later
		// in the list can help, so undo the most recent commitment.
		if len(calls) == 0 {
			return false
		}
		top := calls[len(calls)-1]
		calls = calls[:len(calls)-1]
		state = top.state
		linearized.clear(top.entry.id)
		unlift(top.entry)
		e = top.entry.next
	}
	return true
}
