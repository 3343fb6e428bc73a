// Package rev mints revision tokens: 26-character lexicographically sortable
// identifiers (48-bit millisecond timestamp + 80 bits of monotonic entropy,
// Crockford base32). Tokens order writes for last-writer-wins conflict
// resolution and double as comment IDs.
package rev

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Len is the encoded length of a token.
const Len = ulid.EncodedSize

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh token. Two tokens minted in the same millisecond by
// this process strictly increase: the entropy source increments the low 80
// bits. Across processes, ordering is timestamp-first.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Valid reports whether s parses as a token.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Time extracts the embedded millisecond timestamp, or 0 if s is not a token.
func Time(s string) int64 {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return 0
	}
	return int64(id.Time())
}
