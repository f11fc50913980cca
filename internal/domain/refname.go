package domain

import (
	"fmt"
	"strings"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// BranchMetadataPrefix is the ref namespace holding per-branch metadata
// pointers: refs/branch-metadata/<branch>.
const BranchMetadataPrefix = "refs/branch-metadata/"

// HeadsPrefix is the ordinary Git branch namespace.
const HeadsPrefix = "refs/heads/"

// LedgerRefname is the single reserved ref holding the event ledger tip.
const LedgerRefname = "refs/lattice/event-log"

// Refname is a fully-qualified Git reference name.
type Refname string

func (r Refname) String() string { return string(r) }

// HeadsRefname returns the refs/heads/<branch> refname for a branch.
func HeadsRefname(branch BranchName) Refname {
	return Refname(HeadsPrefix + string(branch))
}

// MetadataRefname returns the refs/branch-metadata/<branch> refname for a branch.
func MetadataRefname(branch BranchName) Refname {
	return Refname(BranchMetadataPrefix + string(branch))
}

// BranchFromMetadataRefname extracts the branch name from a metadata
// refname, returning false if the refname is not in that namespace.
func BranchFromMetadataRefname(r Refname) (BranchName, bool) {
	s := string(r)
	if !strings.HasPrefix(s, BranchMetadataPrefix) {
		return "", false
	}
	return BranchName(strings.TrimPrefix(s, BranchMetadataPrefix)), true
}

// BranchName is a validated reference short-name.
type BranchName string

func (b BranchName) String() string { return string(b) }

// ValidateBranchName applies the Git short-name rules named in the data
// model: may not start with '.' or '-', may not contain "..", "@{", "//",
// control characters, may not end with ".lock" or '/', is not "@", and
// per-path-component rules apply (no component may be empty, ".", start
// with '.', or end with ".lock").
func ValidateBranchName(name string) (BranchName, error) {
	if name == "" {
		return "", invalidBranchName(name, "branch name must not be empty")
	}
	if name == "@" {
		return "", invalidBranchName(name, "branch name must not be exactly \"@\"")
	}
	if strings.Contains(name, "..") {
		return "", invalidBranchName(name, "branch name must not contain \"..\"")
	}
	if strings.Contains(name, "@{") {
		return "", invalidBranchName(name, "branch name must not contain \"@{\"")
	}
	if strings.Contains(name, "//") {
		return "", invalidBranchName(name, "branch name must not contain \"//\"")
	}
	if strings.HasSuffix(name, "/") {
		return "", invalidBranchName(name, "branch name must not end with \"/\"")
	}
	if strings.HasSuffix(name, ".lock") {
		return "", invalidBranchName(name, "branch name must not end with \".lock\"")
	}
	if strings.HasPrefix(name, "-") {
		return "", invalidBranchName(name, "branch name must not start with \"-\"")
	}
	if strings.HasPrefix(name, ".") {
		return "", invalidBranchName(name, "branch name must not start with \".\"")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return "", invalidBranchName(name, "branch name must not contain control characters")
		}
		switch r {
		case ' ', '~', '^', ':', '?', '*', '[', '\\':
			return "", invalidBranchName(name, fmt.Sprintf("branch name must not contain %q", r))
		}
	}
	for _, component := range strings.Split(name, "/") {
		if component == "" {
			return "", invalidBranchName(name, "branch name must not contain an empty path component")
		}
		if component == "." {
			return "", invalidBranchName(name, "branch name path components must not be \".\"")
		}
		if strings.HasPrefix(component, ".") {
			return "", invalidBranchName(name, "branch name path components must not start with \".\"")
		}
		if strings.HasSuffix(component, ".lock") {
			return "", invalidBranchName(name, "branch name path components must not end with \".lock\"")
		}
	}
	return BranchName(name), nil
}

func invalidBranchName(name, reason string) error {
	return latticeerrors.WithEntity(
		latticeerrors.New(latticeerrors.KindInvalidRefName, reason), name)
}
