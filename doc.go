// doc.go - top level documentation

// Package bbhash implements a minimal perfect hash function (MPHF) over a
// static set of uint64 keys, using the cascaded-bitset construction
// described in the BBHash paper (https://arxiv.org/abs/1702.03154) and
// implemented by BooPHF.
//
// Given n distinct keys, Build produces an MPHF that assigns every key a
// unique index in [0, n). The construction proceeds level by level: at each
// level, a fraction of the remaining keys land on a bit position nobody
// else claimed and are assigned their rank within that level's bit vector;
// keys that collide cascade down to the next level. After a fixed number of
// levels, any keys still unresolved are stored in a flat fallback table.
//
// The on-disk format (MPHF.Save / Load) is a fixed little-endian binary
// layout compatible with the C++ reference implementation this package
// interoperates with: two independent implementations that build an MPHF
// over the same keys need not agree on the assignment, but a file written
// by one must be loadable and queryable by the other.
//
// Package bbhash is single-threaded by design: Build runs to completion (or
// is abandoned) without internal concurrency, and a built MPHF is immutable
// and safe for concurrent Lookup from multiple goroutines.
//
// The store sub-package layers a persisted key/value database on top of
// this package for callers who want to look up arbitrary byte-slice keys
// rather than pre-hashed uint64s.
package bbhash
