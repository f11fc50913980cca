package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// RefOid is one (refname, object-id) pair contributing to a fingerprint.
type RefOid struct {
	Ref Refname
	Oid ObjectID
}

// Fingerprint computes a stable hash over the sorted-by-refname
// concatenation of "<refname>\0<oid>\n" lines. The trunk name is folded in
// by the caller as a synthetic RefOid entry (e.g. Ref: "trunk:main",
// Oid: "") so a trunk rename changes the fingerprint even when no ref
// moved.
func Fingerprint(entries []RefOid) string {
	sorted := make([]RefOid, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ref < sorted[j].Ref })

	h := sha256.New()
	for _, e := range sorted {
		h.Write([]byte(e.Ref))
		h.Write([]byte{0})
		h.Write([]byte(e.Oid))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TrunkSyntheticRef builds the synthetic fingerprint entry representing the
// configured trunk name itself, independent of its tip oid (which is
// already included separately as a refs/heads/<trunk> entry).
func TrunkSyntheticRef(trunk BranchName) RefOid {
	return RefOid{Ref: Refname("trunk:" + string(trunk)), Oid: ZeroOID}
}
