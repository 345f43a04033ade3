// errors.go - sentinel errors exposed by package bbhash

package bbhash

import "errors"

var (
	// ErrTooSmall is returned when a stream being Load-ed is too short to
	// contain a valid header.
	ErrTooSmall = errors.New("bbhash: not enough data to unmarshal")

	// ErrCorrupt is returned when a stream being Load-ed contains a
	// value outside the permitted range (spec.md §7, FormatError).
	ErrCorrupt = errors.New("bbhash: corrupt or incompatible stream")
)
