// Package verifier checks the five structural invariants of a healthy
// stack against a scanner.RepoSnapshot. It never mutates anything; the executor
// calls it after applying a plan, scoped to the branches the plan touched,
// so pre-existing unrelated staleness elsewhere in the repository never
// fails an otherwise-successful operation.
package verifier

import (
	"fmt"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/gitrepo"
	"github.com/lcgerke/lattice/internal/scanner"
)

// Failure is one invariant violation, tagged with the Kind the caller can
// branch on.
type Failure struct {
	Kind   latticeerrors.Kind
	Branch domain.BranchName
	Detail string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s (%s)", f.Kind, f.Detail, f.Branch)
}

// Verify checks all five invariants against snap, restricted to scope (nil
// or empty scope means every tracked branch).
func Verify(repo *gitrepo.Repo, snap *scanner.RepoSnapshot, scope []domain.BranchName) []Failure {
	branches := scope
	if len(branches) == 0 {
		branches = snap.TrackedBranches()
	}

	var failures []Failure
	failures = append(failures, checkMetadataParseable(snap, branches)...)
	if cyc := snap.Graph.FindCycle(); cyc != nil {
		failures = append(failures, Failure{
			Kind:   latticeerrors.KindCycleDetected,
			Detail: fmt.Sprintf("cycle detected: %v", cyc),
		})
	}
	failures = append(failures, checkBranchesExist(snap, branches)...)
	failures = append(failures, checkBaseAncestryAndReachability(repo, snap, branches)...)
	failures = append(failures, checkFreezeStructure(snap, branches)...)
	return failures
}

func checkMetadataParseable(snap *scanner.RepoSnapshot, branches []domain.BranchName) []Failure {
	var out []Failure
	for _, b := range branches {
		if _, ok := snap.Metadata[b]; !ok {
			out = append(out, Failure{Kind: latticeerrors.KindMetadataUnparseable, Branch: b, Detail: "no parseable metadata record"})
		}
	}
	return out
}

func checkBranchesExist(snap *scanner.RepoSnapshot, branches []domain.BranchName) []Failure {
	var out []Failure
	for _, b := range branches {
		if _, ok := snap.BranchTips[b]; !ok {
			out = append(out, Failure{Kind: latticeerrors.KindBranchMissing, Branch: b, Detail: "tracked branch has no local ref"})
		}
	}
	return out
}

// checkBaseAncestryAndReachability verifies, for each branch, that its
// recorded base is an ancestor of the branch tip and reachable from the
// parent's tip.
func checkBaseAncestryAndReachability(repo *gitrepo.Repo, snap *scanner.RepoSnapshot, branches []domain.BranchName) []Failure {
	var out []Failure
	for _, b := range branches {
		meta, ok := snap.Metadata[b]
		if !ok {
			continue
		}
		tip, ok := snap.BranchTips[b]
		if !ok {
			continue
		}
		if meta.Base.IsZero() {
			continue
		}
		isAncestor, err := repo.IsAncestor(meta.Base, tip)
		if err != nil || !isAncestor {
			out = append(out, Failure{Kind: latticeerrors.KindBaseNotAncestor, Branch: b, Detail: "recorded base is not an ancestor of the branch tip"})
		}

		parentTip, tracked := snap.BranchTips[meta.Parent]
		if !tracked {
			continue
		}
		reachable, err := repo.IsAncestor(meta.Base, parentTip)
		if err != nil || !reachable {
			out = append(out, Failure{Kind: latticeerrors.KindBaseNotReachableFromParent, Branch: b, Detail: "recorded base is not reachable from the parent's tip"})
		}
	}
	return out
}

// checkFreezeStructure verifies every freeze scope value is one of the
// defined variants. It does not check whether a downstack/upstack freeze's
// branch has relatives in that direction.
func checkFreezeStructure(snap *scanner.RepoSnapshot, branches []domain.BranchName) []Failure {
	var out []Failure
	for _, b := range branches {
		meta, ok := snap.Metadata[b]
		if !ok || !meta.Freeze.Frozen() {
			continue
		}
		switch meta.Freeze.Scope {
		case domain.FreezeOnly, domain.FreezeDownstack, domain.FreezeUpstack, domain.FreezeStack:
		default:
			out = append(out, Failure{Kind: latticeerrors.KindMetadataUnparseable, Branch: b, Detail: "freeze scope is not a recognized variant"})
		}
	}
	return out
}
