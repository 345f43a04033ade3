// serialize.go - bit-exact binary format for MPHF, compatible with the C++
// reference implementation in _examples/original_source/cpp-bbhash.
//
// Layout (all integers little-endian, no padding):
//
//	gamma             float64
//	nb_levels         uint32
//	lastbitsetrank    uint64
//	nelem             uint64
//	<nb_levels bit vectors, each: size, nchar, words, ranks_count, ranks>
//	fallback_count    uint64
//	<fallback_count (key, value) uint64 pairs>

package bbhash

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// headerSize is the fixed 28-byte header: gamma(8) + nb_levels(4) +
// lastbitsetrank(8) + nelem(8).
const headerSize = 8 + 4 + 8 + 8

// maxPlausibleLevels guards against a corrupted or malicious nb_levels
// field turning into a huge allocation; the engine itself only ever
// writes NbLevels.
const maxPlausibleLevels = 1 << 16

// Save writes the bit-exact binary format of spec.md §4.4 to w.
func (m *MPHF) Save(w io.Writer) error {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint64(hdr[0:8], math.Float64bits(m.gamma))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(m.levels)))
	binary.LittleEndian.PutUint64(hdr[12:20], m.lastbitsetrank)
	binary.LittleEndian.PutUint64(hdr[20:28], m.nelem)

	ew := newErrWriter(w)
	ew.Write(hdr[:])

	for _, lv := range m.levels {
		if ew.err != nil {
			break
		}
		ew.err = lv.Save(ew)
	}
	if ew.err != nil {
		return fmt.Errorf("bbhash: save: %w", ew.err)
	}

	if err := writeUint64(w, uint64(len(m.fallback))); err != nil {
		return fmt.Errorf("bbhash: save: fallback count: %w", err)
	}
	// Entries are written in ascending key order so that saving the same
	// MPHF twice produces identical bytes.
	fkeys := make([]uint64, 0, len(m.fallback))
	for k := range m.fallback {
		fkeys = append(fkeys, k)
	}
	sort.Slice(fkeys, func(i, j int) bool { return fkeys[i] < fkeys[j] })
	for _, k := range fkeys {
		v := m.fallback[k]
		if err := writeUint64(w, k); err != nil {
			return fmt.Errorf("bbhash: save: fallback entry: %w", err)
		}
		if err := writeUint64(w, v); err != nil {
			return fmt.Errorf("bbhash: save: fallback entry: %w", err)
		}
	}
	return nil
}

// Load reconstructs an MPHF previously written by Save. Malformed
// headers, short reads, and implausible sizes are reported as
// FormatError-style errors; no partially-built MPHF is returned on error.
func Load(r io.Reader) (*MPHF, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("bbhash: load: header: %w: %w", ErrTooSmall, err)
	}

	gamma := math.Float64frombits(binary.LittleEndian.Uint64(hdr[0:8]))
	nbLevels := binary.LittleEndian.Uint32(hdr[8:12])
	lastbitsetrank := binary.LittleEndian.Uint64(hdr[12:20])
	nelem := binary.LittleEndian.Uint64(hdr[20:28])

	if nbLevels == 0 || nbLevels > maxPlausibleLevels {
		return nil, fmt.Errorf("%w: implausible nb_levels %d at offset 8", ErrCorrupt, nbLevels)
	}

	levels := make([]*bitVector, nbLevels)
	for i := uint32(0); i < nbLevels; i++ {
		lv, err := loadBitVector(r)
		if err != nil {
			return nil, fmt.Errorf("bbhash: load: level %d: %w", i, err)
		}
		levels[i] = lv
	}

	fallbackCount, err := readUint64(r)
	if err != nil {
		return nil, fmt.Errorf("bbhash: load: fallback count: %w", err)
	}
	if fallbackCount > maxPlausibleLevels*uint64(1<<16) {
		return nil, fmt.Errorf("%w: implausible fallback_count %d", ErrCorrupt, fallbackCount)
	}

	fallback := make(map[uint64]uint64, fallbackCount)
	for i := uint64(0); i < fallbackCount; i++ {
		k, err := readUint64(r)
		if err != nil {
			return nil, fmt.Errorf("bbhash: load: fallback entry %d key: %w", i, err)
		}
		v, err := readUint64(r)
		if err != nil {
			return nil, fmt.Errorf("bbhash: load: fallback entry %d value: %w", i, err)
		}
		fallback[k] = v
	}

	m := &MPHF{
		gamma:          gamma,
		lastbitsetrank: lastbitsetrank,
		nelem:          nelem,
		levels:         levels,
		fallback:       fallback,
	}
	m.buildAccelerator()
	return m, nil
}
