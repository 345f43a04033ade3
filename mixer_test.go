// mixer_test.go - pins the one-shot mixer to reference vectors (spec.md
// Scenario E). An implementation that accidentally decomposes h64 into
// three sequential "h ^= ..." updates will fail this test.

package bbhash

import "testing"

func TestH64Vectors(t *testing.T) {
	assert := newAsserter(t)

	cases := []struct {
		key, seed, want uint64
	}{
		{key: 0, seed: 0, want: 0xffffffffffffffff},
		{key: 1, seed: 0, want: 0xfffffffffffffffe},
		{key: 0, seed: 1, want: 0xfffffffffffff77e},
		{key: 0xDEADBEEF, seed: 0x12345678, want: 0xfe0548d9bdcb709a},
	}

	for _, c := range cases {
		got := h64(c.seed, c.key)
		assert(got == c.want, "h64(seed=%#x, key=%#x): exp %#x, saw %#x", c.seed, c.key, c.want, got)
	}
}

func TestH64Deterministic(t *testing.T) {
	assert := newAsserter(t)

	a := h64(42, 0xC0FFEE)
	b := h64(42, 0xC0FFEE)
	assert(a == b, "h64 must be a pure function of (seed, key)")
}

func TestHashIndexedInRange(t *testing.T) {
	assert := newAsserter(t)

	for lvl := uint32(0); lvl < 25; lvl++ {
		for _, size := range []uint64{1, 2, 64, 65, 4096} {
			for _, key := range []uint64{0, 1, 12345, 0xDEADBEEFCAFEBABE} {
				p := hashIndexed(key, lvl, size)
				assert(p < size, "hashIndexed(%d, %d, %d) = %d out of range", key, lvl, size, p)
			}
		}
	}
}
