// writer.go -- builds a constant key/value database on top of a bbhash.MPHF

package store

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dchest/siphash"
	"github.com/opencoff/go-fasthash"

	"github.com/go-bbhash/bbhash"
)

const magic = "BBKV"

// headerSize is the fixed, page-independent header written at offset 0:
// magic(4) + flags(4) + hashSeed(8) + siphashSalt(16) + nkeys(8) +
// offtbl(8), padded to 64 bytes.
const headerSize = 64

const trailerSize = sha512.Size256

type wstate int

const (
	stateOpen wstate = iota
	stateFrozen
	stateAborted
)

type record struct {
	off  uint64
	vlen uint32
}

// Writer accumulates key/value pairs and, once Freeze is called, builds
// the MPHF and writes the finished database file.
type Writer struct {
	fd  *os.File
	fn  string
	tmp string

	hashSeed uint64
	salt     [16]byte

	keys    []uint64 // hashed keys, in Put order; passed to bbhash.Build
	byHash  map[uint64]*record
	off     uint64
	valSize uint64

	state wstate
}

// NewWriter creates fn (via a temp file that is renamed into place on
// Freeze) and prepares it to accept key/value pairs. salt keys the
// per-record siphash checksums; if empty, a random 128-bit salt is
// generated.
func NewWriter(fn string, salt []byte) (*Writer, error) {
	tmp := fmt.Sprintf("%s.tmp.%d", fn, randUint32())
	fd, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		fd:       fd,
		fn:       fn,
		tmp:      tmp,
		hashSeed: randUint64(),
		byHash:   make(map[uint64]*record),
		off:      headerSize,
	}
	if len(salt) > 0 {
		copy(w.salt[:], salt)
	} else if _, err := io.ReadFull(rand.Reader, w.salt[:]); err != nil {
		fd.Close()
		return nil, fmt.Errorf("store: reading salt: %w", err)
	}

	var z [headerSize]byte
	if _, err := w.fd.Write(z[:]); err != nil {
		fd.Close()
		return nil, err
	}

	return w, nil
}

// Len returns the number of distinct keys added so far.
func (w *Writer) Len() int { return len(w.byHash) }

// Put adds a key/value pair. Returns ErrKeyExists if the key (after
// hashing) was already added, and ErrValueTooLarge if val is too big to
// represent in the on-disk format.
func (w *Writer) Put(key, val []byte) error {
	if w.state != stateOpen {
		return ErrFrozen
	}
	if uint64(len(val)) > uint64(1<<32)-1 {
		return ErrValueTooLarge
	}

	hk := fasthash.Hash64(w.hashSeed, key)
	if _, ok := w.byHash[hk]; ok {
		return ErrKeyExists
	}

	r := &record{off: w.off, vlen: uint32(len(val))}
	if err := w.writeRecord(val, r.off); err != nil {
		return err
	}

	w.byHash[hk] = r
	w.keys = append(w.keys, hk)
	w.valSize += uint64(len(val))
	return nil
}

func (w *Writer) writeRecord(val []byte, off uint64) error {
	var o [8]byte
	binary.BigEndian.PutUint64(o[:], off)

	h := siphash.New(w.salt[:])
	h.Write(o[:])
	h.Write(val)

	var cksum [8]byte
	binary.BigEndian.PutUint64(cksum[:], h.Sum64())

	if _, err := w.fd.Write(cksum[:]); err != nil {
		return err
	}
	if len(val) > 0 {
		if _, err := w.fd.Write(val); err != nil {
			return err
		}
	}
	w.off += uint64(len(val)) + 8
	return nil
}

// Abort discards the in-progress database file.
func (w *Writer) Abort() error {
	if w.state != stateOpen {
		return ErrFrozen
	}
	w.state = stateAborted
	w.fd.Close()
	return os.Remove(w.tmp)
}

// Freeze builds the MPHF over the accumulated keys, writes the offset
// table and MPHF, appends a checksum trailer over the header and those
// metadata sections, and renames the
// temp file into place.
func (w *Writer) Freeze() (err error) {
	if w.state != stateOpen {
		return ErrFrozen
	}

	defer func() {
		if err != nil {
			w.fd.Close()
			os.Remove(w.tmp)
		}
	}()

	mph, buildErr := bbhash.Build(w.keys, bbhash.DefaultGamma)
	if buildErr != nil {
		return buildErr
	}

	pgsz := uint64(os.Getpagesize())
	offtbl := (w.off + pgsz - 1) &^ (pgsz - 1)
	if offtbl > w.off {
		if _, err = w.fd.Write(make([]byte, offtbl-w.off)); err != nil {
			return err
		}
		w.off = offtbl
	}

	h := sha512.New512_256()
	tee := io.MultiWriter(w.fd, h)

	var hdr [headerSize]byte
	be := binary.BigEndian
	copy(hdr[:4], magic)
	be.PutUint64(hdr[8:16], w.hashSeed)
	copy(hdr[16:32], w.salt[:])
	be.PutUint64(hdr[32:40], uint64(len(w.keys)))
	be.PutUint64(hdr[40:48], offtbl)
	h.Write(hdr[:])

	n := uint64(len(w.keys))
	offset := make([]uint64, 2*n)
	vlen := make([]uint32, n)
	for hk, r := range w.byHash {
		i := mph.Lookup(hk)
		if i == bbhash.Miss || i >= n {
			return fmt.Errorf("store: freeze: MPHF didn't resolve key %#x", hk)
		}
		offset[i*2] = hk
		offset[i*2+1] = r.off
		vlen[i] = r.vlen
	}

	if err = writeUint64s(tee, offset); err != nil {
		return err
	}
	if err = writeUint32s(tee, vlen); err != nil {
		return err
	}
	w.off += n*16 + n*4

	if err = mph.Save(tee); err != nil {
		return err
	}

	cksum := h.Sum(nil)
	if _, err = w.fd.Write(cksum); err != nil {
		return err
	}

	if _, err = w.fd.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err = w.fd.Write(hdr[:]); err != nil {
		return err
	}
	if err = w.fd.Sync(); err != nil {
		return err
	}
	if err = w.fd.Close(); err != nil {
		return err
	}
	if err = os.Rename(w.tmp, w.fn); err != nil {
		return err
	}

	w.state = stateFrozen
	return nil
}

func writeUint64s(w io.Writer, s []uint64) error {
	buf := make([]byte, len(s)*8)
	for i, v := range s {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	_, err := w.Write(buf)
	return err
}

func writeUint32s(w io.Writer, s []uint32) error {
	buf := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	_, err := w.Write(buf)
	return err
}

func randUint64() uint64 {
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic("store: can't read crypto/rand: " + err.Error())
	}
	return binary.BigEndian.Uint64(b[:])
}

func randUint32() uint32 {
	var b [4]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic("store: can't read crypto/rand: " + err.Error())
	}
	return binary.BigEndian.Uint32(b[:])
}
