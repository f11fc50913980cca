package scanner

import (
	"fmt"
	"time"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/gitrepo"
	"github.com/lcgerke/lattice/internal/storage"
)

// Scan builds a RepoSnapshot without mutating the repository. trunk is
// the configured trunk branch name; commonDir is the repository's shared
// directory (where op-state lives).
func Scan(repo *gitrepo.Repo, metaStore *storage.MetadataStore, ledger *storage.Ledger, trunk domain.BranchName, commonDir string, now time.Time) (*RepoSnapshot, error) {
	snap := &RepoSnapshot{
		Trunk:      trunk,
		BranchTips: map[domain.BranchName]domain.ObjectID{},
		Metadata:   map[domain.BranchName]*domain.BranchMetadata{},
		MetadataRefOids: map[domain.BranchName]domain.ObjectID{},
	}

	snap.Capabilities.RepoOpen = true
	snap.Capabilities.TrunkKnown = trunk != ""
	if !snap.Capabilities.TrunkKnown {
		snap.Issues = append(snap.Issues, Issue{ID: IssueTrunkUnknown, Message: "no trunk branch configured"})
	}

	opState, inFlight, err := storage.ReadOpState(commonDir)
	if err != nil {
		return nil, err
	}
	snap.Capabilities.NoLatticeOpInProgress = !(inFlight && opState.IsInFlight())
	if !snap.Capabilities.NoLatticeOpInProgress {
		snap.Issues = append(snap.Issues, Issue{
			ID:      IssueLatticeOpInProgress,
			Message: fmt.Sprintf("operation %q (%s) is in progress", opState.OpID, opState.Command),
		})
	}

	gitState, err := repo.State()
	if err != nil {
		return nil, err
	}
	snap.GitState = gitState
	snap.Capabilities.NoExternalGitOpInProgress = gitState.Kind == gitrepo.StateClean
	if !snap.Capabilities.NoExternalGitOpInProgress {
		snap.Issues = append(snap.Issues, Issue{
			ID:      IssueExternalGitOp,
			Message: fmt.Sprintf("a git %s is in progress", gitState.Kind),
		})
	}

	snap.Capabilities.WorkingDirectoryAvailable = repo.WorkDir() != ""
	worktreeStatus, err := repo.WorktreeStatusFor()
	if err != nil {
		return nil, err
	}
	snap.Worktree = worktreeStatus
	snap.Capabilities.WorktreeStatusKnown = worktreeStatus.Kind != gitrepo.WorktreeUnavailable
	if !snap.Capabilities.WorktreeStatusKnown {
		snap.Issues = append(snap.Issues, Issue{ID: IssueWorkingTreeUnknown, Message: worktreeStatus.Reason})
	}

	// Host-specific auth/authorization capabilities are not probed: the
	// scanner sets them to its local default, "no known blocker", and the
	// command lifecycle runner (internal/lifecycle) does not re-evaluate them.
	snap.Capabilities.AuthAvailable = true
	snap.Capabilities.RemoteResolved = true
	snap.Capabilities.RepoAuthorized = true
	snap.Capabilities.FrozenPolicySatisfied = true

	branches, err := repo.ListBranches()
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		oid, err := repo.ResolveRef(domain.HeadsRefname(b))
		if err != nil {
			continue
		}
		snap.BranchTips[b] = oid
	}

	records, parseErrs := metaStore.ListAll()
	snap.Capabilities.MetadataReadable = len(parseErrs) == 0
	for _, perr := range parseErrs {
		var branch domain.BranchName
		if le, ok := latticeerrors.As(perr); ok {
			branch = domain.BranchName(le.Entity)
		}
		snap.Issues = append(snap.Issues, Issue{ID: IssueMetadataUnparseable, Branch: branch, Message: perr.Error()})
	}
	structural := make(map[domain.BranchName]domain.Structural, len(records))
	for branch, rec := range records {
		snap.Metadata[branch] = rec.Metadata
		snap.MetadataRefOids[branch] = rec.RefOid
		structural[branch] = rec.Metadata.AsStructural()
	}

	for branch := range snap.BranchTips {
		if branch == trunk {
			continue
		}
		if _, tracked := snap.Metadata[branch]; !tracked {
			snap.Issues = append(snap.Issues, Issue{ID: IssueBranchWithoutMetadata, Branch: branch, Message: "branch exists but is not tracked"})
		}
	}
	for branch := range snap.Metadata {
		if _, exists := snap.BranchTips[branch]; !exists {
			snap.Issues = append(snap.Issues, Issue{ID: IssueOrphanedMetadata, Branch: branch, Message: "metadata exists but branch ref is missing"})
		}
	}
	for branch, m := range structural {
		if m.Parent == trunk {
			continue
		}
		if _, parentTracked := snap.Metadata[m.Parent]; !parentTracked {
			snap.Issues = append(snap.Issues, Issue{ID: IssueParentMissing, Branch: branch, Message: fmt.Sprintf("parent %q is neither trunk nor tracked", m.Parent)})
		}
	}

	snap.Graph = BuildGraph(trunk, structural)
	if cyc := snap.Graph.FindCycle(); cyc != nil {
		snap.Capabilities.GraphValid = false
		snap.Issues = append(snap.Issues, Issue{ID: IssueCycleDetected, Message: fmt.Sprintf("cycle detected: %v", cyc)})
	} else {
		snap.Capabilities.GraphValid = true
	}

	entries := make([]domain.RefOid, 0, len(snap.BranchTips)+len(records)+1)
	entries = append(entries, domain.TrunkSyntheticRef(trunk))
	for branch, oid := range snap.BranchTips {
		entries = append(entries, domain.RefOid{Ref: domain.HeadsRefname(branch), Oid: oid})
	}
	for branch, rec := range records {
		entries = append(entries, domain.RefOid{Ref: domain.MetadataRefname(branch), Oid: rec.RefOid})
	}
	snap.Fingerprint = domain.Fingerprint(entries)

	if ledger != nil {
		lastCommitted, ok, err := ledger.LastCommittedFingerprint()
		if err != nil {
			return nil, err
		}
		if ok && lastCommitted.FingerprintAfter != snap.Fingerprint {
			div := &DivergenceInfo{
				Prior:       lastCommitted.FingerprintAfter,
				Current:     snap.Fingerprint,
				ChangedRefs: diffRefOids(lastCommitted.RefOids, entries),
			}
			snap.Divergence = div
			_, _ = ledger.Append(storage.EventDivergenceObserved, div, now) // best-effort, lock-free
		}
	}

	return snap, nil
}
