// Package executor is the only component permitted to mutate repository
// state. It applies a planner.Plan step by step under the repository
// lock, journaling each applied step so a CAS failure or abort can roll
// back everything already applied.
package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/gitrepo"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/storage"
	"github.com/lcgerke/lattice/internal/verifier"
)

// OutcomeKind distinguishes the three ways Execute can conclude.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomePaused  OutcomeKind = "paused"
	OutcomeAborted OutcomeKind = "aborted"
)

// Outcome is Execute's result: exactly one of success, paused, or aborted.
type Outcome struct {
	Kind          OutcomeKind
	Fingerprint   string
	PausedBranch  domain.BranchName
	GitOperation  string
	PausedMessage string
	AbortReason   string
}

// refSnapshot is the before/after image recorded for a ref-touching step,
// enough to force the ref back to its prior state on rollback.
type refSnapshot struct {
	Ref     domain.Refname  `json:"ref"`
	Existed bool            `json:"existed"`
	Oid     domain.ObjectID `json:"oid,omitempty"`
}

// metaSnapshot is the before/after image recorded for a metadata-touching
// step.
type metaSnapshot struct {
	Branch  domain.BranchName `json:"branch"`
	Existed bool              `json:"existed"`
	RefOid  domain.ObjectID   `json:"ref_oid,omitempty"`
}

func marshalOrNil(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// Execute applies plan against repo under the repository lock.
// fingerprintBefore is the snapshot fingerprint the plan was built from,
// recorded in IntentRecorded. startIndex resumes a previously paused
// operation at the step following its PotentialConflictPause; pass 0 for
// a fresh operation. isRecovery marks the caller as continue/abort, the
// only commands allowed to proceed while another operation is in flight.
func Execute(ctx context.Context, repo *gitrepo.Repo, metaStore *storage.MetadataStore, ledger *storage.Ledger, commonDir string, plan *planner.Plan, trunk domain.BranchName, fingerprintBefore string, startIndex int, isRecovery bool, now time.Time) (*Outcome, error) {
	lock := storage.NewRepoLock(commonDir)
	if err := lock.TryAcquire(); err != nil {
		return nil, err
	}
	defer lock.Release()

	if err := storage.EnsureSharedDir(commonDir); err != nil {
		return nil, err
	}

	existing, inFlight, err := storage.ReadOpState(commonDir)
	if err != nil {
		return nil, err
	}
	if inFlight && existing.IsInFlight() && existing.OpID != plan.OpID && !isRecovery {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindOperationInProgress, "another lattice operation is already in flight"),
			existing.OpID,
		)
	}

	opState := storage.OpState{
		OpID:          plan.OpID,
		Command:       plan.Command,
		Phase:         storage.PhaseExecuting,
		PlanDigest:    plan.Digest(),
		OriginGitDir:  repo.GitDir(),
		OriginWorkDir: repo.WorkDir(),
	}
	if err := storage.WriteOpState(commonDir, opState); err != nil {
		return nil, err
	}

	intentPayload := struct {
		OpID              string `json:"op_id"`
		Command           string `json:"command"`
		PlanDigest        string `json:"plan_digest"`
		FingerprintBefore string `json:"fingerprint_before"`
	}{plan.OpID, plan.Command, opState.PlanDigest, fingerprintBefore}
	_, _ = ledger.Append(storage.EventIntentRecorded, intentPayload, now) // best-effort, informational only

	journal, err := storage.LoadJournal(commonDir, plan.OpID)
	if err != nil {
		return nil, err
	}

	abort := func(reason string) (*Outcome, error) {
		rollback(repo, metaStore, journal)
		_, _ = ledger.Append(storage.EventAborted, struct {
			OpID   string `json:"op_id"`
			Reason string `json:"reason"`
		}{plan.OpID, reason}, now)
		_ = storage.DeleteJournal(commonDir, plan.OpID)
		_ = storage.ClearOpState(commonDir)
		return &Outcome{Kind: OutcomeAborted, AbortReason: reason}, nil
	}

	for i := startIndex; i < len(plan.Steps); i++ {
		step := plan.Steps[i]
		switch step.Kind {

		case planner.StepCheckpoint:
			if err := journal.Append(commonDir, storage.JournalEntry{Index: i, Kind: storage.StepCheckpoint}); err != nil {
				return nil, err
			}

		case planner.StepRunGit:
			before := snapshotRefs(repo, step.ExpectedEffects)
			if _, runErr := repo.RunGit(ctx, step.Args...); runErr != nil {
				gitState, stateErr := repo.State()
				nextIsPause := i+1 < len(plan.Steps) && plan.Steps[i+1].Kind == planner.StepPotentialConflictPause
				if stateErr == nil && gitState.Kind != gitrepo.StateClean && nextIsPause {
					opState.Phase = storage.PhasePaused
					opState.NextStepIndex = i + 2
					opState.PausedBranch = plan.Steps[i+1].PauseBranch
					opState.GitState = string(gitState.Kind)
					if err := storage.WriteOpState(commonDir, opState); err != nil {
						return nil, err
					}
					return &Outcome{
						Kind:          OutcomePaused,
						PausedBranch:  opState.PausedBranch,
						GitOperation:  plan.Steps[i+1].GitOperation,
						PausedMessage: "resolve the conflict, then run 'lattice continue'",
					}, nil
				}
				return abort(runErr.Error())
			}
			after := snapshotRefs(repo, step.ExpectedEffects)
			entry := storage.JournalEntry{Index: i, Kind: storage.StepRunGit, Before: marshalOrNil(before), After: marshalOrNil(after)}
			if err := journal.Append(commonDir, entry); err != nil {
				return nil, err
			}

		case planner.StepPotentialConflictPause:
			if err := journal.Append(commonDir, storage.JournalEntry{Index: i, Kind: storage.StepPotentialConflictPause}); err != nil {
				return nil, err
			}

		case planner.StepCheckout:
			if err := repo.Checkout(ctx, step.CheckoutBranch); err != nil {
				return abort(err.Error())
			}
			if err := journal.Append(commonDir, storage.JournalEntry{Index: i, Kind: storage.StepCheckout}); err != nil {
				return nil, err
			}

		case planner.StepUpdateRefCas:
			oldOid, existed, _ := repo.TryResolveRef(step.RefName)
			before := refSnapshot{Ref: step.RefName, Existed: existed, Oid: oldOid}
			if err := repo.UpdateRefCAS(step.RefName, step.NewOid, step.ExpectedOld, step.Reason); err != nil {
				return abort(err.Error())
			}
			after := refSnapshot{Ref: step.RefName, Existed: true, Oid: step.NewOid}
			entry := storage.JournalEntry{Index: i, Kind: storage.StepUpdateRefCas, Before: marshalOrNil(before), After: marshalOrNil(after)}
			if err := journal.Append(commonDir, entry); err != nil {
				return nil, err
			}

		case planner.StepDeleteRefCas:
			before := refSnapshot{Ref: step.RefName, Existed: true, Oid: step.ExpectedOld}
			if err := repo.DeleteRefCAS(step.RefName, step.ExpectedOld); err != nil {
				return abort(err.Error())
			}
			after := refSnapshot{Ref: step.RefName, Existed: false}
			entry := storage.JournalEntry{Index: i, Kind: storage.StepDeleteRefCas, Before: marshalOrNil(before), After: marshalOrNil(after)}
			if err := journal.Append(commonDir, entry); err != nil {
				return nil, err
			}

		case planner.StepWriteMetadataCas:
			before := metaSnapshot{Branch: step.Branch, Existed: !step.ExpectedOldRefOid.IsZero(), RefOid: step.ExpectedOldRefOid}
			newBlobOid, err := metaStore.WriteCAS(step.Branch, step.ExpectedOldRefOid, step.Metadata)
			if err != nil {
				return abort(err.Error())
			}
			after := metaSnapshot{Branch: step.Branch, Existed: true, RefOid: newBlobOid}
			entry := storage.JournalEntry{Index: i, Kind: storage.StepWriteMetadataCas, Before: marshalOrNil(before), After: marshalOrNil(after)}
			if err := journal.Append(commonDir, entry); err != nil {
				return nil, err
			}

		case planner.StepDeleteMetadataCas:
			before := metaSnapshot{Branch: step.Branch, Existed: true, RefOid: step.ExpectedOldRefOid}
			if err := metaStore.DeleteCAS(step.Branch, step.ExpectedOldRefOid); err != nil {
				return abort(err.Error())
			}
			after := metaSnapshot{Branch: step.Branch, Existed: false}
			entry := storage.JournalEntry{Index: i, Kind: storage.StepDeleteMetadataCas, Before: marshalOrNil(before), After: marshalOrNil(after)}
			if err := journal.Append(commonDir, entry); err != nil {
				return nil, err
			}
		}
	}

	snap, err := scanner.Scan(repo, metaStore, ledger, trunk, commonDir, now)
	if err != nil {
		return nil, err
	}
	if failures := verifier.Verify(repo, snap, touchedBranches(plan)); len(failures) > 0 {
		return abort(failures[0].Error())
	}

	entries := []domain.RefOid{domain.TrunkSyntheticRef(trunk)}
	for branch, oid := range snap.BranchTips {
		entries = append(entries, domain.RefOid{Ref: domain.HeadsRefname(branch), Oid: oid})
	}
	for branch, oid := range snap.MetadataRefOids {
		entries = append(entries, domain.RefOid{Ref: domain.MetadataRefname(branch), Oid: oid})
	}
	committed := storage.CommittedSnapshot{FingerprintAfter: snap.Fingerprint, RefOids: entries}
	_, _ = ledger.Append(storage.EventCommitted, committed, now) // best-effort, consistent with step 4's ledger failure tolerance

	if err := storage.DeleteJournal(commonDir, plan.OpID); err != nil {
		return nil, err
	}
	if err := storage.ClearOpState(commonDir); err != nil {
		return nil, err
	}
	return &Outcome{Kind: OutcomeSuccess, Fingerprint: snap.Fingerprint}, nil
}

// Abort rolls back an in-flight operation from outside the step loop: it
// loads the operation's journal, forces every journaled ref and metadata
// ref back to its recorded before-image, appends an Aborted ledger event,
// and clears the journal and op-state. Used by the `abort` command on a
// paused operation, mirroring Execute's own internal abort closure.
func Abort(repo *gitrepo.Repo, metaStore *storage.MetadataStore, ledger *storage.Ledger, commonDir string, opID string, reason string, now time.Time) error {
	lock := storage.NewRepoLock(commonDir)
	if err := lock.TryAcquire(); err != nil {
		return err
	}
	defer lock.Release()

	journal, err := storage.LoadJournal(commonDir, opID)
	if err != nil {
		return err
	}
	rollback(repo, metaStore, journal)
	_, _ = ledger.Append(storage.EventAborted, struct {
		OpID   string `json:"op_id"`
		Reason string `json:"reason"`
	}{opID, reason}, now)
	if err := storage.DeleteJournal(commonDir, opID); err != nil {
		return err
	}
	return storage.ClearOpState(commonDir)
}

func snapshotRefs(repo *gitrepo.Repo, refs []domain.Refname) []refSnapshot {
	out := make([]refSnapshot, 0, len(refs))
	for _, ref := range refs {
		oid, existed, _ := repo.TryResolveRef(ref)
		out = append(out, refSnapshot{Ref: ref, Existed: existed, Oid: oid})
	}
	return out
}

func touchedBranches(plan *planner.Plan) []domain.BranchName {
	seen := map[domain.BranchName]bool{}
	var out []domain.BranchName
	for _, ref := range plan.TouchedRefs {
		branch, isMeta := domain.BranchFromMetadataRefname(ref)
		if !isMeta {
			continue
		}
		if !seen[branch] {
			seen[branch] = true
			out = append(out, branch)
		}
	}
	return out
}

// rollback reverses every journaled entry in reverse order, restoring refs
// and metadata refs to their recorded before-images. Used on CasFailed and
// on post-execution verification failure.
func rollback(repo *gitrepo.Repo, metaStore *storage.MetadataStore, journal storage.Journal) {
	for i := len(journal.Entries) - 1; i >= 0; i-- {
		entry := journal.Entries[i]
		if len(entry.Before) == 0 {
			continue
		}
		switch entry.Kind {
		case storage.StepUpdateRefCas, storage.StepDeleteRefCas:
			var before refSnapshot
			if json.Unmarshal(entry.Before, &before) == nil {
				restoreRef(repo, before)
			}
		case storage.StepRunGit:
			var before []refSnapshot
			if json.Unmarshal(entry.Before, &before) == nil {
				for _, b := range before {
					restoreRef(repo, b)
				}
			}
		case storage.StepWriteMetadataCas, storage.StepDeleteMetadataCas:
			var before metaSnapshot
			if json.Unmarshal(entry.Before, &before) == nil {
				restoreMeta(repo, before)
			}
		}
	}
}

func restoreRef(repo *gitrepo.Repo, before refSnapshot) {
	if before.Ref == "" {
		return
	}
	if before.Existed {
		_ = repo.UpdateRefForce(before.Ref, before.Oid)
	} else {
		_ = repo.DeleteRefForce(before.Ref)
	}
}

func restoreMeta(repo *gitrepo.Repo, before metaSnapshot) {
	ref := domain.MetadataRefname(before.Branch)
	if before.Existed {
		_ = repo.UpdateRefForce(ref, before.RefOid)
	} else {
		_ = repo.DeleteRefForce(ref)
	}
}
