// mphf.go - the cascade builder and lookup table.
//
// Implements the BBHash algorithm: https://arxiv.org/abs/1702.03154

package bbhash

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/go-bbhash/bbhash/internal/chdindex"
)

// DefaultGamma is the load factor used when Build is called with gamma <=
// 0. 2.0 is the value recommended by the BBHash paper as a good balance
// between construction speed and table size.
const DefaultGamma float64 = 2.0

// NbLevels is the fixed cascade depth, per spec.md §3. It never varies
// with n or gamma: even an empty key set produces 25 one-bit levels.
const NbLevels = 25

// Miss is returned by Lookup for a key with no level match and no
// fallback entry.
const Miss = ^uint64(0)

// MPHF is an immutable minimal perfect hash function built by Build or
// reconstructed by Load. Once constructed, Lookup is safe for concurrent
// use from multiple goroutines.
type MPHF struct {
	gamma          float64
	lastbitsetrank uint64
	nelem          uint64
	levels         []*bitVector
	fallback       map[uint64]uint64

	accel *fallbackAccel
}

// fallbackAccel is the optional in-memory CHD index over fallback, built
// when the fallback table is large enough that a map probe is no longer
// the cheapest option. It is never serialized; Save always round-trips
// the fallback map directly.
type fallbackAccel struct {
	idx  *chdindex.Index
	keys []uint64
	vals []uint64
}

func (f *fallbackAccel) lookup(k uint64) (uint64, bool) {
	i := f.idx.Find(k)
	if i >= uint64(len(f.keys)) || f.keys[i] != k {
		return 0, false
	}
	return f.vals[i], true
}

// Build ingests keys and materializes an MPHF. keys must be distinct; the
// engine does not detect duplicates (spec.md §7, InputError). gamma <= 0
// is replaced with DefaultGamma.
func Build(keys []uint64, gamma float64) (*MPHF, error) {
	if gamma <= 0 {
		gamma = DefaultGamma
	}

	m := &MPHF{
		gamma: gamma,
		nelem: uint64(len(keys)),
	}

	remaining := append([]uint64(nil), keys...)
	levels := make([]*bitVector, NbLevels)

	for lvl := 0; lvl < NbLevels; lvl++ {
		size := levelSize(gamma, uint64(len(remaining)))
		A := newBitVector(size)
		C := newBitVector(size)

		// Pass 1: mark first occupant of each position; mark every
		// position more than one key lands on as a collision.
		for _, k := range remaining {
			p := hashIndexed(k, uint32(lvl), size)
			if !A.Get(p) {
				A.Set(p)
			} else {
				C.Set(p)
			}
		}

		// Pass 2: keys that landed on a collided position cascade to
		// the next level; everyone else keeps their bit.
		survivors := make([]uint64, 0, len(remaining)/2)
		for _, k := range remaining {
			p := hashIndexed(k, uint32(lvl), size)
			if C.Get(p) {
				A.Clear(p)
				survivors = append(survivors, k)
			}
		}

		levels[lvl] = A
		remaining = survivors
	}

	offset := uint64(0)
	for _, lv := range levels {
		offset = lv.BuildRanks(offset)
	}

	m.levels = levels
	m.lastbitsetrank = offset

	m.fallback = make(map[uint64]uint64, len(remaining))
	for i, k := range remaining {
		m.fallback[k] = offset + uint64(i)
	}

	m.buildAccelerator()
	return m, nil
}

// levelSize returns the bit-vector size for a level with r keys
// remaining, per spec.md §4.3: ceil(gamma*r), never smaller than 1.
func levelSize(gamma float64, r uint64) uint64 {
	if r == 0 {
		return 1
	}
	sz := ceilFloat(gamma * float64(r))
	if sz < 1 {
		sz = 1
	}
	return sz
}

func ceilFloat(f float64) uint64 {
	n := uint64(f)
	if float64(n) < f {
		n++
	}
	return n
}

// buildAccelerator replaces the plain fallback map probe with a CHD index
// once the fallback table is large enough to be worth the construction
// cost (spec.md is silent on this; SPEC_FULL.md §4.6 records the
// decision). A failed CHD build (vanishingly unlikely, but chdindex.Build
// can in principle exhaust its seed budget) just leaves the map in place.
func (m *MPHF) buildAccelerator() {
	if len(m.fallback) <= chdindex.MinKeys {
		return
	}

	keys := make([]uint64, 0, len(m.fallback))
	for k := range m.fallback {
		keys = append(keys, k)
	}

	idx, err := chdindex.Build(keys)
	if err != nil {
		return
	}

	vals := make([]uint64, idx.Len())
	slotKeys := make([]uint64, idx.Len())
	for _, k := range keys {
		i := idx.Find(k)
		slotKeys[i] = k
		vals[i] = m.fallback[k]
	}

	m.accel = &fallbackAccel{idx: idx, keys: slotKeys, vals: vals}
}

// Len returns the number of keys the MPHF was built over.
func (m *MPHF) Len() int { return int(m.nelem) }

// Size returns the number of keys the MPHF was built over (spec.md §6's
// mphf.size()).
func (m *MPHF) Size() uint64 { return m.nelem }

// Gamma returns the load factor the MPHF was built with.
func (m *MPHF) Gamma() float64 { return m.gamma }

// Lookup returns the unique index assigned to key, in [0, Size()), if key
// was part of the build set. For a key that was not in the build set,
// behavior is unspecified: Lookup may return Miss, or it may return some
// in-range value (spec.md §4.3) — the MPHF is not a membership test.
func (m *MPHF) Lookup(key uint64) uint64 {
	for lvl, A := range m.levels {
		p := hashIndexed(key, uint32(lvl), A.Size())
		if A.Get(p) {
			return A.Rank(p)
		}
	}

	if m.accel != nil {
		if v, ok := m.accel.lookup(key); ok {
			return v
		}
		return Miss
	}

	if v, ok := m.fallback[key]; ok {
		return v
	}
	return Miss
}

// DumpMeta writes a short human-readable summary of the MPHF's level
// sizes to w, mirroring the teacher codebase's DumpMeta debugging aid.
func (m *MPHF) DumpMeta(w interface{ Write([]byte) (int, error) }) {
	fmt.Fprintf(w, "bbhash: gamma %.2f; %d keys; %d levels; %d fallback\n",
		m.gamma, m.nelem, len(m.levels), len(m.fallback))
	for i, lv := range m.levels {
		fmt.Fprintf(w, "  %2d: %s\n", i, humanSize(lv.Nchar()*8))
	}
}

func humanSize(nbytes uint64) string {
	return humanize.Bytes(nbytes)
}
