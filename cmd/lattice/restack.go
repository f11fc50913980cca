package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/executor"
	"github.com/lcgerke/lattice/internal/gating"
	"github.com/lcgerke/lattice/internal/lifecycle"
	"github.com/lcgerke/lattice/internal/planner"
)

var restackWholeStack bool

var restackCmd = &cobra.Command{
	Use:   "restack [branch]",
	Short: "Rebase a branch (or the whole stack) onto its parent's current tip",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRestack,
}

func init() {
	restackCmd.Flags().BoolVar(&restackWholeStack, "stack", false, "restack every tracked branch, bottom-up")
}

func runRestack(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}

	var branch domain.BranchName
	if len(args) > 0 {
		branch = domain.BranchName(args[0])
	}
	req := gating.Mutating

	result, err := lifecycle.Run(context.Background(), a.deps(), "restack", req, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			var scope []domain.BranchName
			if restackWholeStack {
				scope = ctx.Snapshot.Graph.TopologicalOrder(ctx.Snapshot.TrackedBranches())
			} else {
				scope = []domain.BranchName{branch}
			}
			return planner.PlanRestack(opID, ctx.Snapshot, scope, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("restack", result.Repair)
		return nil
	}
	reportOutcome(a, result.Outcome)
	return nil
}

// reportOutcome prints an executor.Outcome in a way shared by every
// mutating command.
func reportOutcome(a *app, outcome *executor.Outcome) {
	switch outcome.Kind {
	case executor.OutcomeSuccess:
		a.out.Success("done")
	case executor.OutcomePaused:
		a.out.Warning(fmt.Sprintf("paused during %s on %s: %s", outcome.GitOperation, outcome.PausedBranch, outcome.PausedMessage))
		a.out.Info("resolve the conflict, then run `lattice continue` or `lattice abort`")
	case executor.OutcomeAborted:
		a.out.Warning(fmt.Sprintf("aborted: %s", outcome.AbortReason))
	}
}
