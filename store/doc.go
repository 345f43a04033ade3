// doc.go - top level documentation

// Package store implements a single-file, memory-mapped key/value database
// keyed by arbitrary byte-slice keys, indexed by an embedded
// github.com/go-bbhash/bbhash.MPHF.
//
// A Writer accumulates key/value pairs, then Freeze builds the MPHF over
// the (hashed) keys and writes everything to one file: a small header, the
// value records (each preceded by a per-record siphash checksum), a
// page-aligned offset table meant to be memory-mapped, the serialized
// MPHF, and a SHA-512/256 trailer over the header and everything from the
// offset table on (the value records are covered by their own checksums).
//
// A Reader opens that file, verifies the trailer, mmaps the offset table,
// and answers Lookup by hashing the queried key, resolving its MPHF index,
// confirming the stored hash still matches (the MPHF is not a membership
// test — see bbhash.MPHF.Lookup), verifying the per-record checksum, and
// returning the value. Recently read values are cached.
//
// Like the MPHF it wraps, a store is built once and then immutable: there
// is no update or delete after Freeze.
package store
