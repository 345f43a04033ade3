// errors.go - sentinel errors exposed by package store

package store

import "errors"

var (
	// ErrFrozen is returned when attempting to add records to an
	// already-frozen Writer, or to freeze one twice.
	ErrFrozen = errors.New("store: already frozen")

	// ErrKeyExists is returned when adding a key that was already added
	// to this Writer.
	ErrKeyExists = errors.New("store: key already exists")

	// ErrValueTooLarge is returned if a value exceeds 2^32-1 bytes.
	ErrValueTooLarge = errors.New("store: value larger than 2^32-1 bytes")

	// ErrNoSuchKey is returned when a key cannot be found in the store,
	// including when the underlying MPHF resolves it to a slot that
	// belongs to a different key (the MPHF is not a membership test).
	ErrNoSuchKey = errors.New("store: no such key")

	// ErrChecksum is returned when a record's siphash checksum does not
	// match its stored value.
	ErrChecksum = errors.New("store: record checksum mismatch")

	// ErrCorruptHeader is returned when a store file's header or trailer
	// fails validation.
	ErrCorruptHeader = errors.New("store: corrupt or truncated header")
)
