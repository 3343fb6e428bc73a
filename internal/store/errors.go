package store

import (
	"errors"
	"strings"

	sqlite3 "github.com/ncruces/go-sqlite3"
	"github.com/tissue-dev/tissue/internal/ids"
)

// Error taxonomy. Callers test with errors.Is; the CLI maps any of these to a
// one-line diagnostic and exit 1.
var (
	// ErrStoreNotFound means the store directory is absent during open.
	ErrStoreNotFound = errors.New("store not found")
	// ErrIssueNotFound means ID resolution found no match.
	ErrIssueNotFound = errors.New("issue not found")
	// ErrAmbiguousID means a prefix or hash-suffix input matched more than one issue.
	ErrAmbiguousID = errors.New("ambiguous issue id")
	// ErrInvalidIDInput aliases the ids package sentinel for lookup input.
	ErrInvalidIDInput = ids.ErrInvalidIDInput
	// ErrInvalidPrefix aliases the ids package sentinel for project prefixes.
	ErrInvalidPrefix = ids.ErrInvalidPrefix
	// ErrInvalidDepKind means a dep kind outside blocks/parent/relates.
	ErrInvalidDepKind = errors.New("invalid dependency kind")
	// ErrSelfDependency means a dep with src = dst.
	ErrSelfDependency = errors.New("issue cannot depend on itself")
	// ErrIDCollision means minting exhausted its nonces without a unique id.
	ErrIDCollision = errors.New("issue id collision: nonce attempts exhausted")
	// ErrBusy means both retry loops gave up on cache contention.
	ErrBusy = errors.New("database busy")
	// ErrMalformedRecord means a log record is missing a required typed field.
	// Raised only when applying to the cache; parse failures are warned and
	// skipped instead.
	ErrMalformedRecord = errors.New("malformed log record")
)

// isBusy classifies contention errors from the sqlite layer that the write
// path should retry rather than surface.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.BUSY, sqlite3.LOCKED:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
