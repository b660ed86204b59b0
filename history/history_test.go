package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvokeRespondRecordsArrivalOrder(t *testing.T) {
	h := New[string]()
	a := h.Invoke("read")
	b := h.Invoke("write")
	h.Respond(b, "ok")
	h.Respond(a, "1")

	require.Equal(t, int64(0), a)
	require.Equal(t, int64(1), b)
	require.Equal(t, 4, h.Size())

	events := h.Events()
	require.Equal(t, Event[string]{Invocation, "read", a}, events[0])
	require.Equal(t, Event[string]{Invocation, "write", b}, events[1])
	require.Equal(t, Event[string]{Response, "ok", b}, events[2])
	require.Equal(t, Event[string]{Response, "1", a}, events[3])
}

func TestCompleteSynthesizesResponse(t *testing.T) {
	h := New[string]()
	pending := h.Invoke("read")
	done := h.Invoke("write")
	h.Respond(done, "ok")

	var seen []string
	h.Complete(func(input string) (string, bool) {
		seen = append(seen, input)
		return "synthetic", true
	})

	require.Equal(t, []string{"read"}, seen)
	require.Equal(t, 4, h.Size())
	events := h.Events()
	require.Equal(t, Event[string]{Response, "synthetic", pending}, events[3])

	// the completed history is fully matched
	open := map[int64]bool{}
	for _, e := range events {
		if e.Kind == Invocation {
			open[e.Id] = true
		} else {
			delete(open, e.Id)
		}
	}
	require.Empty(t, open)
}

func TestCompleteDropsPendingInvocation(t *testing.T) {
	h := New[string]()
	pending := h.Invoke("read")
	done := h.Invoke("write")
	h.Respond(done, "ok")

	h.Complete(Remove[string])

	require.Equal(t, 2, h.Size())
	for _, e := range h.Events() {
		require.NotEqual(t, pending, e.Id)
	}
}

func TestCompletePanicsOnDuplicateResponse(t *testing.T) {
	h := New[string]()
	id := h.Invoke("write")
	h.Respond(id, "ok")
	h.Respond(id, "ok")
	require.Panics(t, func() {
		h.Complete(Remove[string])
	})
}

func TestCompletePanicsOnOrphanResponse(t *testing.T) {
	h := New[string]()
	h.Respond(42, "ok")
	require.Panics(t, func() {
		h.Complete(Remove[string])
	})
}

func TestRemoveDeletesAllEventsForId(t *testing.T) {
	h := New[string]()
	keep := h.Invoke("write")
	drop := h.Invoke("cas")
	h.Respond(drop, "maybe")
	h.Respond(keep, "ok")

	h.Remove(drop)

	require.Equal(t, 2, h.Size())
	for _, e := range h.Events() {
		require.Equal(t, keep, e.Id)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	h := New[string]()
	h.Respond(h.Invoke("write"), "ok")
	c := h.Clone()

	h.Respond(h.Invoke("read"), "1")
	require.Equal(t, 4, h.Size())
	require.Equal(t, 2, c.Size())

	// the clone's id sequence continues from where the original stood
	// when it was taken
	require.Equal(t, int64(1), c.Invoke("read"))
}

func TestConcurrentClients(t *testing.T) {
	const clients, opsPerClient = 8, 50

	h := New[int]()
	var wg sync.WaitGroup
	for c := 0; c < clients; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			for i := 0; i < opsPerClient; i++ {
				id := h.Invoke(c)
				h.Respond(id, c)
			}
		}(c)
	}
	wg.Wait()

	require.Equal(t, 2*clients*opsPerClient, h.Size())

	invocations := map[int64]int{}
	responses := map[int64]int{}
	for _, e := range h.Events() {
		if e.Kind == Invocation {
			invocations[e.Id]++
		} else {
			responses[e.Id]++
		}
	}
	require.Len(t, invocations, clients*opsPerClient)
	for id, n := range invocations {
		require.Equal(t, 1, n)
		require.Equal(t, 1, responses[id])
	}
}
