package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/gating"
	"github.com/lcgerke/lattice/internal/lifecycle"
	"github.com/lcgerke/lattice/internal/planner"
)

var (
	freezeScope  string
	freezeReason string
)

var freezeCmd = &cobra.Command{
	Use:   "freeze <branch>",
	Short: "Mark a branch (or its upstack/downstack/stack) frozen against restack and submit",
	Args:  cobra.ExactArgs(1),
	RunE:  runFreeze,
}

func init() {
	freezeCmd.Flags().StringVar(&freezeScope, "scope", "only", "freeze scope: only|upstack|downstack|stack")
	freezeCmd.Flags().StringVar(&freezeReason, "reason", "", "reason recorded on the frozen branch(es)")
}

func runFreeze(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])
	scope := domain.FreezeScope(freezeScope)

	result, err := lifecycle.Run(context.Background(), a.deps(), "freeze", gating.MutatingMetadataOnly, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			return planner.PlanFreeze(opID, ctx.Snapshot, branch, scope, freezeReason, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("freeze", result.Repair)
		return nil
	}
	reportOutcome(a, result.Outcome)
	return nil
}
