// bitvector_test.go - rank correctness and bit-exact round trip

package bbhash

import (
	"bytes"
	"math/bits"
	"testing"
)

func TestBitVectorSetGet(t *testing.T) {
	assert := newAsserter(t)

	bv := newBitVector(200)
	assert(bv.Nchar() == 1+200/64, "nchar: exp %d, saw %d", 1+200/64, bv.Nchar())

	for _, p := range []uint64{0, 1, 63, 64, 65, 127, 199} {
		assert(!bv.Get(p), "bit %d should start clear", p)
		bv.Set(p)
		assert(bv.Get(p), "bit %d should be set", p)
		bv.Set(p) // idempotent
		assert(bv.Get(p), "bit %d should stay set after re-Set", p)
	}

	bv.Clear(64)
	assert(!bv.Get(64), "bit 64 should be clear after Clear")
	assert(bv.Get(63), "bit 63 should be unaffected by Clear(64)")
}

func TestBitVectorNcharAlwaysHasPaddingWord(t *testing.T) {
	assert := newAsserter(t)

	for _, size := range []uint64{0, 1, 63, 64, 65, 128, 512, 513} {
		bv := newBitVector(size)
		assert(bv.Nchar() == 1+size/64, "size %d: nchar exp %d saw %d", size, 1+size/64, bv.Nchar())
	}
}

func TestBitVectorRankMatchesPopcount(t *testing.T) {
	assert := newAsserter(t)

	size := uint64(5000)
	bv := newBitVector(size)

	// deterministic pseudo-random fill
	h := uint64(0xA5A5A5A5)
	for i := uint64(0); i < size/3; i++ {
		h = h64(h, i)
		bv.Set(h % size)
	}
	bv.BuildRanks(0)

	var running uint64
	for pos := uint64(0); pos <= size; pos++ {
		got := bv.Rank(pos)
		assert(got == running, "rank(%d): exp %d, saw %d", pos, running, got)
		if pos < size && bv.Get(pos) {
			running++
		}
	}
}

func TestBitVectorRankChainsOffset(t *testing.T) {
	assert := newAsserter(t)

	bv := newBitVector(1000)
	for i := uint64(0); i < 1000; i += 7 {
		bv.Set(i)
	}

	const offset = 12345
	total := bv.BuildRanks(offset)

	var pop uint64
	for i := 0; i < len(bv.words); i++ {
		pop += uint64(bits.OnesCount64(bv.words[i]))
	}
	assert(total == offset+pop, "BuildRanks return: exp %d, saw %d", offset+pop, total)
	assert(bv.Rank(0) == offset, "rank(0): exp %d, saw %d", offset, bv.Rank(0))
	assert(bv.Rank(1000) == total, "rank(size): exp %d, saw %d", total, bv.Rank(1000))
}

func TestBitVectorSaveLoadRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	bv := newBitVector(777)
	for i := uint64(0); i < 777; i += 3 {
		bv.Set(i)
	}
	bv.BuildRanks(99)

	var buf bytes.Buffer
	assert(bv.Save(&buf) == nil, "save failed")

	loaded, err := loadBitVector(&buf)
	assert(err == nil, "load failed: %v", err)
	assert(loaded.size == bv.size, "size mismatch: exp %d saw %d", bv.size, loaded.size)
	assert(len(loaded.words) == len(bv.words), "nchar mismatch")
	assert(len(loaded.ranks) == len(bv.ranks), "ranks_count mismatch")

	for i := uint64(0); i < 777; i++ {
		assert(loaded.Get(i) == bv.Get(i), "bit %d mismatch after round trip", i)
	}
	for pos := uint64(0); pos <= 777; pos += 13 {
		assert(loaded.Rank(pos) == bv.Rank(pos), "rank(%d) mismatch after round trip", pos)
	}
}
