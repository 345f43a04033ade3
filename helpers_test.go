// helpers_test.go - shared test helpers

package bbhash

import (
	"fmt"
	"runtime"
	"testing"
)

func newAsserter(t *testing.T) func(cond bool, msg string, args ...interface{}) {
	return func(cond bool, msg string, args ...interface{}) {
		if cond {
			return
		}

		_, file, line, ok := runtime.Caller(1)
		if !ok {
			file = "???"
			line = 0
		}

		s := fmt.Sprintf(msg, args...)
		t.Fatalf("%s: %d: Assertion failed: %s\n", file, line, s)
	}
}

// sequentialKeys returns n distinct keys starting at base.
func sequentialKeys(base, n uint64) []uint64 {
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = base + uint64(i)
	}
	return keys
}

// pseudoRandomKeys returns n distinct pseudo-random keys, deterministic
// across runs so tests stay reproducible.
func pseudoRandomKeys(n int, seed uint64) []uint64 {
	seen := make(map[uint64]bool, n)
	keys := make([]uint64, 0, n)
	h := seed
	for len(keys) < n {
		h = h64(h, uint64(len(keys))+1)
		if seen[h] {
			continue
		}
		seen[h] = true
		keys = append(keys, h)
	}
	return keys
}
