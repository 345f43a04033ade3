// codec.go - little-endian primitives shared by the bit vector and the
// top-level MPHF serializer.
//
// Word slices are encoded and decoded through explicit
// encoding/binary.LittleEndian calls rather than an unsafe pointer cast:
// the format in spec.md §4.4 is a cross-language, cross-architecture
// contract, and casting a []uint64 to []byte via unsafe assumes the host is
// little-endian, which is true on amd64/arm64 but not guaranteed in
// general. Going through encoding/binary costs a copy per level; the
// engine's I/O is dominated by disk/network latency anyway, so the
// portability is worth it (see DESIGN.md).

package bbhash

import (
	"encoding/binary"
	"io"
)

const wordSize = 8

func writeUint64(w io.Writer, v uint64) error {
	var b [wordSize]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [wordSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// writeUint64Slice writes each element of s in order, little-endian.
func writeUint64Slice(w io.Writer, s []uint64) error {
	buf := make([]byte, len(s)*wordSize)
	for i, v := range s {
		binary.LittleEndian.PutUint64(buf[i*wordSize:], v)
	}
	_, err := w.Write(buf)
	return err
}

// readUint64Slice reads n little-endian uint64s from r.
func readUint64Slice(r io.Reader, n uint64) ([]uint64, error) {
	buf := make([]byte, n*wordSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(buf[i*wordSize:])
	}
	return out, nil
}
