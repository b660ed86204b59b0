package lincheck

import (
	"encoding/binary"

	"golang.org/x/exp/slices"
)

// cache memoizes the (state, linearized-set) pairs the search has already
// explored, so equivalent configurations reached along different orderings
// are pruned. States are interned to small dense ids on first sight; all
// storage keys off the interned id, never the state value itself.
//
// Histories of up to 64 operations fit their linearized set in one word and
// take a fast path indexed directly by that word; wider histories fall back
// to a per-state set of bitset values. A cache lives for one partition's
// search and is discarded afterwards.
type cache[S comparable] struct {
	interned map[S]uint32

	// fast path, linearized set is a single word
	byWord    map[uint64]*stateSet
	stateSets map[string]*stateSet

	// general path
	byState map[uint32]map[string]struct{}
}

// stateSet is an immutable, sorted set of interned state ids. Sets are
// interned by content too, so explorations that reach the same linearized
// word with the same state membership, in whatever insertion order, share a
// single set.
type stateSet struct {
	ids []uint32
}

func newCache[S comparable](words int) *cache[S] {
	c := &cache[S]{interned: make(map[S]uint32)}
	if words <= 1 {
		c.byWord = make(map[uint64]*stateSet)
		c.stateSets = make(map[string]*stateSet)
	} else {
		c.byState = make(map[uint32]map[string]struct{})
	}
	return c
}

func (c *cache[S]) intern(state S) uint32 {
	id, ok := c.interned[state]
	if !ok {
		id = uint32(len(c.interned))
		c.interned[state] = id
	}
	return id
}

// add records the pair and reports whether it was newly seen. A false
// return is what drives the search's "already explored" pruning.
func (c *cache[S]) add(state S, linearized bitset) bool {
	id := c.intern(state)
	if c.byWord != nil {
		var word uint64
		if len(linearized) == 1 {
			word = linearized[0]
		}
		set := c.byWord[word]
		if set.contains(id) {
			return false
		}
		c.byWord[word] = c.withId(set, id)
		return true
	}
	seen, ok := c.byState[id]
	if !ok {
		seen = make(map[string]struct{})
		c.byState[id] = seen
	}
	k := linearized.key()
	if _, dup := seen[k]; dup {
		return false
	}
	seen[k] = struct{}{}
	return true
}

func (s *stateSet) contains(id uint32) bool {
	if s == nil {
		return false
	}
	_, found := slices.BinarySearch(s.ids, id)
	return found
}

// withId returns the interned set holding the contents of s plus id.
func (c *cache[S]) withId(s *stateSet, id uint32) *stateSet {
	var ids []uint32
	if s != nil {
		ids = slices.Clone(s.ids)
	}
	at, _ := slices.BinarySearch(ids, id)
	ids = slices.Insert(ids, at, id)
	key := setKey(ids)
	if shared, ok := c.stateSets[key]; ok {
		return shared
	}
	set := &stateSet{ids: ids}
	c.stateSets[key] = set
	return set
}

func setKey(ids []uint32) string {
	buf := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.BigEndian.PutUint32(buf[4*i:], id)
	}
	return string(buf)
}
