// bitset.go - plain (unranked) bitset used internally while searching for
// a collision-free seed per bucket. Distinct from bbhash's ranked
// bitVector: this one never needs rank queries, only Set/IsSet/Reset.

package chdindex

type bitset struct {
	v []uint64
}

func newBitset(n uint64) *bitset {
	words := (n + 63) / 64
	return &bitset{v: make([]uint64, words)}
}

func (b *bitset) set(i uint64)        { b.v[i/64] |= uint64(1) << (i % 64) }
func (b *bitset) isSet(i uint64) bool { return (b.v[i/64]>>(i%64))&1 == 1 }

func (b *bitset) reset() {
	for i := range b.v {
		b.v[i] = 0
	}
}

func (b *bitset) merge(o *bitset) {
	for i, w := range o.v {
		b.v[i] |= w
	}
}
