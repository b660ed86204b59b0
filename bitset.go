package lincheck

import "encoding/binary"

// bitset is a fixed-width bit vector. The search uses one to track which
// internal operation ids have been provisionally committed to the
// linearization under exploration.
type bitset []uint64

func newBitset(bits int) bitset {
	words := bits / 64
	if bits%64 != 0 {
		words++
	}
	return make(bitset, words)
}

func (b bitset) set(pos int) {
	b[pos/64] |= 1 << (pos % 64)
}

func (b bitset) clear(pos int) {
	b[pos/64] &^= 1 << (pos % 64)
}

func (b bitset) get(pos int) bool {
	return b[pos/64]&(1<<(pos%64)) != 0
}

// key encodes the bitset's value as a string usable as a map key.
func (b bitset) key() string {
	buf := make([]byte, 8*len(b))
	for i, w := range b {
		binary.LittleEndian.PutUint64(buf[8*i:], w)
	}
	return string(buf)
}
