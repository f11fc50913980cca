package domain

import (
	"time"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// SchemaKind identifies the record type stored at a metadata ref.
const SchemaKind = "branch-metadata"

// SchemaVersion1 is the only schema version this engine currently writes or
// accepts.
const SchemaVersion1 = 1

// FreezeScope names how far a freeze extends from the frozen branch.
type FreezeScope string

const (
	FreezeNone      FreezeScope = ""
	FreezeOnly      FreezeScope = "only"
	FreezeDownstack FreezeScope = "downstack"
	FreezeUpstack   FreezeScope = "upstack"
	FreezeStack     FreezeScope = "stack"
)

// Freeze records whether a branch is frozen, and if so, how far the freeze
// extends and why.
type Freeze struct {
	Scope  FreezeScope `json:"scope,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// Frozen reports whether the branch carrying this Freeze is itself frozen.
func (f Freeze) Frozen() bool { return f.Scope != FreezeNone }

// PRState is the lifecycle state of a linked review-host pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
	PRStateMerged PRState = "merged"
)

// PRLink records the review-platform linkage for a branch, when one exists.
type PRLink struct {
	Number int     `json:"number"`
	URL    string  `json:"url"`
	Draft  bool    `json:"draft"`
	State  PRState `json:"state"`
}

// BranchMetadata is the v1 structured record describing a tracked branch.
type BranchMetadata struct {
	Kind          string      `json:"kind"`
	SchemaVersion int         `json:"schema_version"`
	Branch        BranchName  `json:"branch"`
	Parent        BranchName  `json:"parent"`
	Base          ObjectID    `json:"base"`
	Freeze        Freeze      `json:"freeze"`
	PR            *PRLink     `json:"pr,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Structural is the presentation-free view of a metadata record: only the
// fields algorithms (planner, verifier, scanner) are allowed to depend on.
// Keeping this separate stops graph/verification code from accidentally
// branching on PR state or timestamps.
type Structural struct {
	Branch BranchName
	Parent BranchName
	Base   ObjectID
	Freeze Freeze
}

// AsStructural projects a BranchMetadata down to its Structural view.
func (m *BranchMetadata) AsStructural() Structural {
	return Structural{Branch: m.Branch, Parent: m.Parent, Base: m.Base, Freeze: m.Freeze}
}

// NewBranchMetadata constructs a fresh v1 record with both timestamps set
// to now.
func NewBranchMetadata(branch, parent BranchName, base ObjectID, now time.Time) *BranchMetadata {
	return &BranchMetadata{
		Kind:          SchemaKind,
		SchemaVersion: SchemaVersion1,
		Branch:        branch,
		Parent:        parent,
		Base:          base,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks the structural invariants this package can check without
// access to the repository (branch/parent name validity, non-zero base for
// a non-trunk chain is left to the scanner, since the trunk itself carries
// no metadata record).
func (m *BranchMetadata) Validate() error {
	if m.Kind != SchemaKind {
		return latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindMetadataUnparseable, "unknown metadata kind"), m.Kind)
	}
	if m.SchemaVersion != SchemaVersion1 {
		return latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindMetadataUnparseable, "unknown metadata schema version"), m.Branch.String())
	}
	if _, err := ValidateBranchName(string(m.Branch)); err != nil {
		return latticeerrors.MetadataUnparseable(string(m.Branch), err)
	}
	if _, err := ValidateBranchName(string(m.Parent)); err != nil {
		return latticeerrors.MetadataUnparseable(string(m.Branch), err)
	}
	if m.Freeze.Scope != FreezeNone {
		switch m.Freeze.Scope {
		case FreezeOnly, FreezeDownstack, FreezeUpstack, FreezeStack:
		default:
			return latticeerrors.WithEntity(
				latticeerrors.New(latticeerrors.KindMetadataUnparseable, "invalid freeze scope"), m.Branch.String())
		}
	}
	return nil
}

// ParseBranchMetadata strictly decodes a canonical-JSON blob into a
// BranchMetadata, rejecting unknown fields and unknown schema versions.
func ParseBranchMetadata(data []byte) (*BranchMetadata, error) {
	var m BranchMetadata
	if err := StrictUnmarshal(data, &m); err != nil {
		return nil, latticeerrors.Wrap(latticeerrors.KindMetadataUnparseable, "malformed metadata JSON", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Serialize renders the record as canonical JSON for blob storage.
func (m *BranchMetadata) Serialize() ([]byte, error) {
	return CanonicalJSON(m)
}
