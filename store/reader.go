// reader.go -- query interface for a store built via Writer.Freeze

package store

import (
	"bytes"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dchest/siphash"
	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/opencoff/go-fasthash"
	"github.com/opencoff/go-mmap"

	"github.com/go-bbhash/bbhash"
)

// Reader is the read-only query interface to a database built with
// Writer. The zero value is not usable; construct one with Open.
type Reader struct {
	mph *bbhash.MPHF

	cache *arc.ARCCache[uint64, []byte]

	hashSeed uint64
	salt     [16]byte
	nkeys    uint64
	offtbl   uint64

	// mmap'd offset+hashkey table (16 bytes/record) and the value-length
	// table (4 bytes/record), both sliced out of the same mapping.
	offbytes []byte
	vlbytes  []byte

	mm *mmap.Mapping
	fd *os.File
	fn string
}

// CacheSize is the default number of recently-read values kept in the
// Reader's ARC cache.
const CacheSize = 128

// Open opens the store file fn, validates its header and the trailer
// checksum over the header and metadata, and memory-maps its offset table. cache, if <= 0, defaults to
// CacheSize.
func Open(fn string, cache int) (rd *Reader, err error) {
	fd, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			fd.Close()
		}
	}()

	if cache <= 0 {
		cache = CacheSize
	}

	st, err := fd.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: can't stat: %w", fn, err)
	}
	if st.Size() < headerSize+trailerSize {
		return nil, fmt.Errorf("%w: %s too small", ErrCorruptHeader, fn)
	}

	var hdr [headerSize]byte
	if _, err = io.ReadFull(fd, hdr[:]); err != nil {
		return nil, fmt.Errorf("%s: can't read header: %w", fn, err)
	}

	rd = &Reader{fd: fd, fn: fn}
	if err = rd.decodeHeader(hdr[:], st.Size()); err != nil {
		return nil, err
	}
	if err = rd.verifyChecksum(hdr[:], st.Size()); err != nil {
		return nil, err
	}

	rd.cache, err = arc.NewARC[uint64, []byte](cache)
	if err != nil {
		return nil, err
	}

	mmapsz := st.Size() - int64(rd.offtbl) - trailerSize
	mm := mmap.New(fd)
	mapping, err := mm.Map(mmapsz, int64(rd.offtbl), mmap.PROT_READ, mmap.F_READAHEAD)
	if err != nil {
		return nil, fmt.Errorf("%s: can't mmap %d bytes at off %d: %w", fn, mmapsz, rd.offtbl, err)
	}

	bs := mapping.Bytes()
	offsz := rd.nkeys * 16
	vlsz := rd.nkeys * 4
	if uint64(len(bs)) < offsz+vlsz {
		mapping.Unmap()
		return nil, fmt.Errorf("%w: offset table truncated", ErrCorruptHeader)
	}

	rd.mm = mapping
	rd.offbytes = bs[:offsz]
	rd.vlbytes = bs[offsz : offsz+vlsz]

	mph, err := bbhash.Load(bytes.NewReader(bs[offsz+vlsz:]))
	if err != nil {
		mapping.Unmap()
		return nil, fmt.Errorf("%s: can't unmarshal MPHF: %w", fn, err)
	}
	rd.mph = mph

	return rd, nil
}

// Len returns the number of keys in the store.
func (rd *Reader) Len() int { return int(rd.nkeys) }

// Close releases the mapping, the file descriptor and the cache.
func (rd *Reader) Close() error {
	rd.mm.Unmap()
	err := rd.fd.Close()
	rd.cache.Purge()
	rd.fd = nil
	rd.fn = ""
	return err
}

// Lookup returns the value associated with key, or ErrNoSuchKey if key was
// never added to the store. A non-nil error may also be ErrChecksum if the
// on-disk record failed its integrity check.
func (rd *Reader) Lookup(key []byte) ([]byte, error) {
	hk := fasthash.Hash64(rd.hashSeed, key)

	if v, ok := rd.cache.Get(hk); ok {
		return v, nil
	}

	i := rd.mph.Lookup(hk)
	if i == bbhash.Miss || i >= rd.nkeys {
		return nil, ErrNoSuchKey
	}

	rec := i * 16
	storedHash := binary.LittleEndian.Uint64(rd.offbytes[rec:])
	if storedHash != hk {
		// MPHF resolved to a slot, but it belongs to a different key:
		// the MPHF is not a membership test.
		return nil, ErrNoSuchKey
	}
	off := binary.LittleEndian.Uint64(rd.offbytes[rec+8:])
	vlen := binary.LittleEndian.Uint32(rd.vlbytes[i*4:])

	val, err := rd.decodeRecord(off, vlen)
	if err != nil {
		return nil, err
	}

	rd.cache.Add(hk, val)
	return val, nil
}

func (rd *Reader) decodeRecord(off uint64, vlen uint32) ([]byte, error) {
	if _, err := rd.fd.Seek(int64(off), io.SeekStart); err != nil {
		return nil, err
	}

	data := make([]byte, uint64(vlen)+8)
	if _, err := io.ReadFull(rd.fd, data); err != nil {
		return nil, err
	}

	csum := binary.BigEndian.Uint64(data[:8])

	var o [8]byte
	binary.BigEndian.PutUint64(o[:], off)

	h := siphash.New(rd.salt[:])
	h.Write(o[:])
	h.Write(data[8:])

	if exp := h.Sum64(); exp != csum {
		return nil, fmt.Errorf("%w: record at off %d (exp %#x, saw %#x)", ErrChecksum, off, exp, csum)
	}
	return data[8:], nil
}

func (rd *Reader) decodeHeader(b []byte, sz int64) error {
	if string(b[:4]) != magic {
		return fmt.Errorf("%w: bad magic %q", ErrCorruptHeader, b[:4])
	}

	be := binary.BigEndian
	rd.hashSeed = be.Uint64(b[8:16])
	copy(rd.salt[:], b[16:32])
	rd.nkeys = be.Uint64(b[32:40])
	rd.offtbl = be.Uint64(b[40:48])

	if rd.offtbl < headerSize || rd.offtbl >= uint64(sz-trailerSize) {
		return fmt.Errorf("%w: implausible offset-table position %d", ErrCorruptHeader, rd.offtbl)
	}
	return nil
}

func (rd *Reader) verifyChecksum(hdr []byte, sz int64) error {
	h := sha512.New512_256()
	h.Write(hdr)

	remsz := sz - int64(rd.offtbl) - trailerSize
	if _, err := rd.fd.Seek(int64(rd.offtbl), io.SeekStart); err != nil {
		return err
	}
	if nw, err := io.CopyN(h, rd.fd, remsz); err != nil || nw != remsz {
		return fmt.Errorf("%w: metadata i/o error: %v", ErrCorruptHeader, err)
	}

	var expsum [trailerSize]byte
	if _, err := rd.fd.Seek(sz-trailerSize, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(rd.fd, expsum[:]); err != nil {
		return fmt.Errorf("%w: trailer i/o error: %v", ErrCorruptHeader, err)
	}

	csum := h.Sum(nil)
	if subtle.ConstantTimeCompare(csum, expsum[:]) != 1 {
		return fmt.Errorf("%w: trailer checksum mismatch", ErrCorruptHeader)
	}

	_, err := rd.fd.Seek(int64(rd.offtbl), io.SeekStart)
	return err
}
