// chdindex.go - Compress Hash Displace (CHD) minimal perfect hash, used
// in-process to accelerate lookups into a large fallback table.
//
// This is an in-memory-only structure: it is rebuilt from the fallback
// table's keys whenever an MPHF with more than MinKeys fallback entries is
// built or loaded, and is never itself part of the on-disk format. See SPEC_FULL.md §4.6.
//
// Adapted from the Compress-Hash-Displace algorithm described in
// http://cmph.sourceforge.net/papers/esa09.pdf.
package chdindex

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// MinKeys is the fallback-table size above which bbhash.MPHF builds a CHD
// index instead of using a plain map for fallback lookups.
const MinKeys = 64

// maxSeed bounds how many per-bucket seed values Build will try before
// giving up and returning an error.
const maxSeed uint32 = 65536 * 2

// loadFactor controls the size of the intermediate bucket table relative
// to the key count; lower values build faster at the cost of a larger
// table.
const loadFactor = 0.81

// Index is a frozen CHD lookup table over a fixed key set. Find is
// meaningful only for keys that were present when Build was called;
// callers are responsible for confirming a returned slot actually belongs
// to the queried key (Index does not store the keys themselves).
type Index struct {
	seed []uint32
	m    uint64
	salt uint64
}

type bucket struct {
	slot uint64
	keys []uint64
}
type buckets []bucket

func (b buckets) Len() int           { return len(b) }
func (b buckets) Less(i, j int) bool { return len(b[i].keys) > len(b[j].keys) }
func (b buckets) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// Build constructs a CHD index over keys. keys must be distinct.
func Build(keys []uint64) (*Index, error) {
	if len(keys) == 0 {
		return nil, errors.New("chdindex: no keys")
	}

	salt := randUint64()
	m := nextPow2(uint64(float64(len(keys))/loadFactor) + 1)

	bkts := make(buckets, m)
	for i := range bkts {
		bkts[i].slot = uint64(i)
	}
	for _, key := range keys {
		j := rhash(0, key, m, salt)
		bkts[j].keys = append(bkts[j].keys, key)
	}

	seeds := make([]uint32, m)
	occ := newBitset(m)
	bOcc := newBitset(m)

	sort.Sort(bkts)

	for i := range bkts {
		b := &bkts[i]
		placed := false
		for s := uint32(1); s < maxSeed; s++ {
			bOcc.reset()
			collision := false
			for _, key := range b.keys {
				h := rhash(s, key, m, salt)
				if occ.isSet(h) || bOcc.isSet(h) {
					collision = true
					break
				}
				bOcc.set(h)
			}
			if collision {
				continue
			}
			occ.merge(bOcc)
			seeds[b.slot] = s
			placed = true
			break
		}
		if !placed {
			return nil, fmt.Errorf("chdindex: no perfect hash after %d tries for bucket %d", maxSeed, b.slot)
		}
	}

	return &Index{seed: seeds, m: m, salt: salt}, nil
}

// Len returns the size of the index's internal slot table (a power of two
// at least as large as the key count supplied to Build).
func (c *Index) Len() int { return int(c.m) }

// Find returns the slot assigned to k. The result is only meaningful for
// keys that were part of the set passed to Build.
func (c *Index) Find(k uint64) uint64 {
	h := rhash(0, k, c.m, c.salt)
	return rhash(c.seed[h], k, c.m, c.salt)
}

// hash key with a given seed, reduced modulo sz via a mask (sz is always a
// power of two here).
func rhash(seed uint32, key, sz, salt uint64) uint64 {
	const m uint64 = 0x880355f21e6d1965
	h := key

	h *= m
	h ^= mix(salt)
	h *= m
	h ^= mix(uint64(seed))
	h *= m

	return mix(h) & (sz - 1)
}

// mix is Zi Long Tan's compression function for fasthash.
func mix(h uint64) uint64 {
	h ^= h >> 23
	h *= 0x2127599bf4325c37
	h ^= h >> 47
	return h
}

func nextPow2(n uint64) uint64 {
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

func randUint64() uint64 {
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic("chdindex: can't read crypto/rand: " + err.Error())
	}
	return binary.BigEndian.Uint64(b[:])
}
