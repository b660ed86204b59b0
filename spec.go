package lincheck

import (
	"fmt"

	"golang.org/x/exp/maps"

	"lincheck/history"
)

// SequentialSpec is the legal sequential behavior of the data type under
// test: an initial state plus a partial transition function. NextState
// reports whether the observed output is explainable by applying input in
// the given state, and if so the state the operation leaves behind. It must
// not mutate state and must not be affected by previous calls.
//
// States are interned by Go equality during the search, so S must be a
// comparable type. Specs with composite state should canonicalize it to a
// comparable form, a string encoding being the usual choice.
type SequentialSpec[S comparable, T any] interface {
	InitialState() S
	NextState(state S, input, output T) (S, bool)

	// Partition splits a history into sub-histories that are checked
	// independently; the verdict is the conjunction over all of them.
	// Embed SinglePartition for the default behavior.
	Partition(events []history.Event[T]) [][]history.Event[T]
}

// SinglePartition provides the default Partition: the whole history is
// checked as one partition.
type SinglePartition[T any] struct{}

func (SinglePartition[T]) Partition(events []history.Event[T]) [][]history.Event[T] {
	return [][]history.Event[T]{events}
}

// KeyedSpec describes a data type whose operations on distinct keys
// commute, such as a map of independent registers. Key extracts the key an
// operation acts on; Value strips the key from an invocation's carried
// value, leaving what the per-key transition function consumes.
type KeyedSpec[S comparable, K comparable, T any] interface {
	InitialState() S
	NextState(state S, input, output T) (S, bool)

	Key(value T) K
	Value(value T) T
}

// Keyed adapts a KeyedSpec into a SequentialSpec whose Partition groups the
// history by key. Operations on different keys trivially commute, so
// checking each group on its own and combining the verdicts is equivalent
// to checking the joint history and exponentially cheaper.
func Keyed[S comparable, K comparable, T any](spec KeyedSpec[S, K, T]) SequentialSpec[S, T] {
	return keyedSpec[S, K, T]{spec}
}

type keyedSpec[S comparable, K comparable, T any] struct {
	KeyedSpec[S, K, T]
}

func (ks keyedSpec[S, K, T]) Partition(events []history.Event[T]) [][]history.Event[T] {
	buckets := make(map[K][]history.Event[T])
	// Responses carry no key of their own: route each one to the bucket
	// its invocation landed in.
	keyOf := make(map[int64]K)
	for _, e := range events {
		switch e.Kind {
		case history.Invocation:
			k := ks.Key(e.Value)
			keyOf[e.Id] = k
			e.Value = ks.Value(e.Value)
			buckets[k] = append(buckets[k], e)
		case history.Response:
			k, ok := keyOf[e.Id]
			if !ok {
				panic(fmt.Sprintf("lincheck: response for operation %d without a pending invocation", e.Id))
			}
			buckets[k] = append(buckets[k], e)
		}
	}
	partitions := make([][]history.Event[T], 0, len(buckets))
	for _, k := range maps.Keys(buckets) {
		partitions = append(partitions, buckets[k])
	}
	return partitions
}
