// store_test.go -- round trip tests for Writer/Reader

package store

import (
	"fmt"
	"os"
	"testing"
)

func newAsserter(t *testing.T) func(cond bool, msg string, args ...interface{}) {
	return func(cond bool, msg string, args ...interface{}) {
		if !cond {
			t.Fatalf(msg, args...)
		}
	}
}

func tempFile(t *testing.T) string {
	t.Helper()
	fn := fmt.Sprintf("%s/bbhash-store-test-%d-%s.db", os.TempDir(), os.Getpid(), t.Name())
	t.Cleanup(func() { os.Remove(fn) })
	return fn
}

func testKV(n int) map[string]string {
	kv := make(map[string]string, n)
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("key-%04d", i)
		v := fmt.Sprintf("value for %s, index %d", k, i)
		kv[k] = v
	}
	return kv
}

func TestWriterReaderRoundTrip(t *testing.T) {
	assert := newAsserter(t)
	fn := tempFile(t)

	kv := testKV(500)
	wr, err := NewWriter(fn, nil)
	assert(err == nil, "new writer: %v", err)

	for k, v := range kv {
		assert(wr.Put([]byte(k), []byte(v)) == nil, "put %s", k)
	}
	assert(wr.Len() == len(kv), "writer len: exp %d, saw %d", len(kv), wr.Len())
	assert(wr.Freeze() == nil, "freeze failed")

	rd, err := Open(fn, 0)
	assert(err == nil, "open: %v", err)
	defer func() { _ = rd.Close() }()

	assert(rd.Len() == len(kv), "reader len: exp %d, saw %d", len(kv), rd.Len())

	for k, v := range kv {
		got, err := rd.Lookup([]byte(k))
		assert(err == nil, "lookup %s: %v", k, err)
		assert(string(got) == v, "key %s: exp %q, saw %q", k, v, string(got))
	}
}

func TestReaderRejectsUnknownKeys(t *testing.T) {
	assert := newAsserter(t)
	fn := tempFile(t)

	wr, err := NewWriter(fn, nil)
	assert(err == nil, "new writer: %v", err)
	assert(wr.Put([]byte("present"), []byte("here")) == nil, "put")
	assert(wr.Freeze() == nil, "freeze")

	rd, err := Open(fn, 0)
	assert(err == nil, "open: %v", err)
	defer func() { _ = rd.Close() }()

	for _, k := range []string{"absent", "missing", "nope"} {
		_, err := rd.Lookup([]byte(k))
		assert(err == ErrNoSuchKey, "key %q: exp ErrNoSuchKey, saw %v", k, err)
	}
}

func TestWriterRejectsDuplicateKey(t *testing.T) {
	assert := newAsserter(t)
	fn := tempFile(t)

	wr, err := NewWriter(fn, nil)
	assert(err == nil, "new writer: %v", err)
	assert(wr.Put([]byte("dup"), []byte("one")) == nil, "first put")
	assert(wr.Put([]byte("dup"), []byte("two")) == ErrKeyExists, "expected ErrKeyExists on duplicate")
	assert(wr.Abort() == nil, "abort")
}

func TestWriterRejectsOperationsAfterFreeze(t *testing.T) {
	assert := newAsserter(t)
	fn := tempFile(t)

	wr, err := NewWriter(fn, nil)
	assert(err == nil, "new writer: %v", err)
	assert(wr.Put([]byte("a"), []byte("b")) == nil, "put")
	assert(wr.Freeze() == nil, "freeze")

	assert(wr.Put([]byte("c"), []byte("d")) == ErrFrozen, "expected ErrFrozen after freeze")
	assert(wr.Freeze() == ErrFrozen, "expected ErrFrozen on double freeze")
}

func TestEmptyStore(t *testing.T) {
	assert := newAsserter(t)
	fn := tempFile(t)

	wr, err := NewWriter(fn, nil)
	assert(err == nil, "new writer: %v", err)
	assert(wr.Freeze() == nil, "freeze of empty store")

	rd, err := Open(fn, 0)
	assert(err == nil, "open: %v", err)
	defer func() { _ = rd.Close() }()

	assert(rd.Len() == 0, "expected empty store")
	_, err = rd.Lookup([]byte("anything"))
	assert(err == ErrNoSuchKey, "expected ErrNoSuchKey on empty store")
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	assert := newAsserter(t)
	fn := tempFile(t)

	assert(os.WriteFile(fn, []byte("not a store file"), 0o600) == nil, "write garbage")

	_, err := Open(fn, 0)
	assert(err != nil, "expected error opening a non-store file")
}
