// Package domain holds the lattice's primitive value types: object ids,
// branch names, refnames, and the deterministic serialization and
// fingerprinting built on top of them. Nothing in this package touches a
// repository; it is pure validation and encoding.
package domain

import (
	"strings"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// ObjectID is a canonical hexadecimal hash string. The zero value (empty
// string) is the distinguished "absent" value used by CAS to mean
// "no existing ref".
type ObjectID string

// ZeroOID is the distinguished absent object id.
const ZeroOID ObjectID = ""

// IsZero reports whether the oid represents "absent".
func (o ObjectID) IsZero() bool { return o == ZeroOID }

func (o ObjectID) String() string { return string(o) }

// supported hash hex lengths: SHA-1 (40) and SHA-256 (64).
func validOidLength(n int) bool { return n == 40 || n == 64 }

// ParseOID normalizes and validates a hex object id. An empty string parses
// to ZeroOID without error, since "absent" is itself meaningful input for
// CAS preconditions.
func ParseOID(s string) (ObjectID, error) {
	if s == "" {
		return ZeroOID, nil
	}
	lower := strings.ToLower(s)
	if !validOidLength(len(lower)) {
		return "", latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindInvalidOid, "object id has an unsupported length"), s)
	}
	for _, r := range lower {
		if !isHexDigit(r) {
			return "", latticeerrors.WithEntity(
				latticeerrors.New(latticeerrors.KindInvalidOid, "object id contains non-hexadecimal characters"), s)
		}
	}
	return ObjectID(lower), nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}
