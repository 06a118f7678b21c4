package fpfilter

import "github.com/willf/bitset"

// bitVector is a flat, mutable vector of single bits. It backs the
// three per-slot metadata flags (occupied, continuation, shifted) of a
// Filter.
type bitVector struct {
	bits *bitset.BitSet
	n    uint64
}

func newBitVector(n uint64) *bitVector {
	return &bitVector{
		bits: bitset.New(uint(n)),
		n:    n,
	}
}

func (b *bitVector) Get(pos uint64) bool {
	return b.bits.Test(uint(pos))
}

func (b *bitVector) Set(pos uint64, value bool) {
	b.bits.SetTo(uint(pos), value)
}

// Exchange sets the bit at pos to value and returns the bit's previous
// value.
func (b *bitVector) Exchange(pos uint64, value bool) bool {
	old := b.Get(pos)
	b.Set(pos, value)
	return old
}

func (b *bitVector) Clear() {
	b.bits.ClearAll()
}
