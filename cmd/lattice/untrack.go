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

var untrackScope string

var untrackCmd = &cobra.Command{
	Use:   "untrack <branch>",
	Short: "Stop tracking a branch, leaving its Git ref in place",
	Args:  cobra.ExactArgs(1),
	RunE:  runUntrack,
}

func init() {
	untrackCmd.Flags().StringVar(&untrackScope, "scope", "single", "untrack scope: single|upstack|downstack")
}

func runUntrack(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])
	scope := planner.DeleteScope(untrackScope)

	result, err := lifecycle.Run(context.Background(), a.deps(), "untrack", gating.MutatingMetadataOnly, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			return planner.PlanUntrack(opID, ctx.Snapshot, branch, scope, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("untrack", result.Repair)
		return nil
	}
	reportOutcome(a, result.Outcome)
	return nil
}
