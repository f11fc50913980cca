package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/lifecycle"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/storage"
)

var continueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Resume a paused operation after resolving its conflict",
	Args:  cobra.NoArgs,
	RunE:  runContinue,
}

// rebuildPausedPlan reconstructs the plan a paused operation was running,
// for the one command whose RunGit step can pause on a Git conflict
// (restack). Every other command's steps are pure CAS writes that never
// leave Git itself mid-operation, so they have nothing to rebuild.
func rebuildPausedPlan(state storage.OpState, snap *scanner.RepoSnapshot, at time.Time) (*planner.Plan, error) {
	switch state.Command {
	case "restack":
		return planner.PlanRestack(state.OpID, snap, []domain.BranchName{state.PausedBranch}, at)
	default:
		return nil, fmt.Errorf("don't know how to resume a paused %q operation", state.Command)
	}
}

func runContinue(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}

	state, inFlight, err := storage.ReadOpState(a.repo.CommonDir())
	if err != nil {
		return err
	}
	if !inFlight || state.Phase != storage.PhasePaused {
		return latticeerrors.New(latticeerrors.KindInvalidState, "no paused operation to continue")
	}

	at := time.Now()
	snap, err := scanner.Scan(a.repo, a.metaStore, a.ledger, domain.BranchName(a.cfg.Trunk), a.repo.CommonDir(), at)
	if err != nil {
		return err
	}

	plan, err := rebuildPausedPlan(state, snap, at)
	if err != nil {
		return err
	}
	plan.OpID = state.OpID
	if plan.Digest() != state.PlanDigest {
		return latticeerrors.New(latticeerrors.KindInvalidState,
			"reconstructed plan no longer matches the paused operation; run `lattice abort` and retry")
	}

	result, err := lifecycle.Continue(context.Background(), a.deps(), plan, state.NextStepIndex, snap.Fingerprint, at)
	if err != nil {
		return err
	}
	reportOutcome(a, result.Outcome)
	return nil
}
