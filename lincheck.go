// Package lincheck decides whether a recorded history of concurrent
// operations against a shared service is linearizable: whether some
// sequential ordering of the operations, consistent with each operation's
// real-time invocation/response span, replays validly through a
// caller-supplied sequential specification.
//
// A test harness records invocations and responses in a history.History
// while exercising the system under test, then asks for a verdict. The
// check never mutates the caller's history; it clones it, fills in or drops
// pending operations, splits it into independent partitions and runs a
// memoized backtracking search over each. The underlying decision problem
// is PSPACE-complete, so callers wanting bounded latency must bound the
// history size or impose an external deadline.
package lincheck

import (
	"fmt"

	"lincheck/history"
)

// IsLinearizable reports whether the history is linearizable with respect
// to spec. Pending invocations in the clone are completed with missing
// before the search; the generator sees each invocation's input exactly as
// it was recorded, before any keyed partitioning rewrites it.
func IsLinearizable[S comparable, T any](spec SequentialSpec[S, T], h *history.History[T], missing history.MissingResponseGenerator[T]) bool {
	clone := h.Clone()
	clone.Complete(missing)
	return check(spec, clone)
}

// IsLinearizableComplete is IsLinearizable for a history that already holds
// a response for every invocation. It returns an error rather than guessing
// when operations are still pending.
func IsLinearizableComplete[S comparable, T any](spec SequentialSpec[S, T], h *history.History[T]) (bool, error) {
	clone := h.Clone()
	if n := pendingCount(clone.Events()); n > 0 {
		return false, fmt.Errorf("lincheck: history is not complete: %d operations still pending", n)
	}
	return check(spec, clone), nil
}

// IsLinearizableWithTimeoutOptimization first checks the history with every
// pending invocation dropped, treating timed-out operations as having had
// no observable effect. If that reduced history is linearizable the full
// one is too and the answer is immediately true; otherwise the history is
// completed with missing and searched in full. The extra search is usually
// far cheaper than the one it short-circuits.
func IsLinearizableWithTimeoutOptimization[S comparable, T any](spec SequentialSpec[S, T], h *history.History[T], missing history.MissingResponseGenerator[T]) bool {
	reduced := h.Clone()
	reduced.Complete(history.Remove[T])
	if check(spec, reduced) {
		return true
	}
	return IsLinearizable(spec, h, missing)
}

// check partitions a completed history and requires every partition to be
// linearizable on its own. Partitions share nothing: each gets a fresh
// entry list, bitset and cache.
func check[S comparable, T any](spec SequentialSpec[S, T], h *history.History[T]) bool {
	for _, partition := range spec.Partition(h.Events()) {
		if !checkPartition(spec, partition) {
			return false
		}
	}
	return true
}

func pendingCount[T any](events []history.Event[T]) int {
	pending := make(map[int64]struct{})
	for _, e := range events {
		if e.Kind == history.Invocation {
			pending[e.Id] = struct{}{}
		} else {
			delete(pending, e.Id)
		}
	}
	return len(pending)
}
