// Package ids handles issue identifiers: project prefix normalization,
// hash-based ID minting, and validation of user-supplied lookup input.
package ids

import (
	"crypto/sha256"
	"errors"
	"strconv"
	"strings"
)

// HashLen is the length of the hash portion of an issue ID.
const HashLen = 8

// MaxPrefixLen bounds a normalized project prefix.
const MaxPrefixLen = 32

// MaxNonce is the number of minting attempts before giving up. With a 40-bit
// hash space this is practically unreachable.
const MaxNonce = 10

var (
	// ErrInvalidPrefix means a project prefix normalized to the empty string.
	ErrInvalidPrefix = errors.New("invalid project prefix")
	// ErrInvalidIDInput means lookup input contains disallowed characters.
	ErrInvalidIDInput = errors.New("invalid id: only letters, digits, '.' and '-' allowed")
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NormalizePrefix lowercases ASCII letters, keeps letters and digits, maps
// every run of other runes to a single dash, strips leading/trailing dashes,
// and truncates to MaxPrefixLen. An empty result is ErrInvalidPrefix.
func NormalizePrefix(raw string) (string, error) {
	var b strings.Builder
	dash := false
	for _, r := range raw {
		switch {
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
			fallthrough
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	p := b.String()
	if len(p) > MaxPrefixLen {
		p = p[:MaxPrefixLen]
		p = strings.TrimRight(p, "-")
	}
	if p == "" {
		return "", ErrInvalidPrefix
	}
	return p, nil
}

// Mint derives a candidate issue ID from the issue content and a nonce.
// The hash input is "title|body|created_at|nonce"; the leading 5 bytes of
// its SHA-256 form a 40-bit value rendered as 8 base36 characters.
func Mint(prefix, title, body string, createdAt int64, nonce int) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte("|"))
	h.Write([]byte(body))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatInt(createdAt, 10)))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(nonce)))
	sum := h.Sum(nil)

	v := uint64(sum[0])<<32 | uint64(sum[1])<<24 | uint64(sum[2])<<16 |
		uint64(sum[3])<<8 | uint64(sum[4])

	var buf [HashLen]byte
	for i := HashLen - 1; i >= 0; i-- {
		buf[i] = base36[v%36]
		v /= 36
	}
	return prefix + "-" + string(buf[:])
}

// ValidLookupInput reports whether user-supplied ID input contains only the
// characters an issue ID can hold. Anything else would also defeat the LIKE
// patterns used for prefix resolution.
func ValidLookupInput(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-':
		default:
			return false
		}
	}
	return true
}

// HashPart returns the substring after the last dash, which for a well-formed
// ID is the 8-character hash.
func HashPart(id string) string {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return id
	}
	return id[idx+1:]
}
