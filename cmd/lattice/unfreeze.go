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

var unfreezeCmd = &cobra.Command{
	Use:   "unfreeze <branch>",
	Short: "Clear a branch's freeze",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnfreeze,
}

func runUnfreeze(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])

	result, err := lifecycle.Run(context.Background(), a.deps(), "unfreeze", gating.MutatingMetadataOnly, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			return planner.PlanUnfreeze(opID, ctx.Snapshot, branch, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("unfreeze", result.Repair)
		return nil
	}
	reportOutcome(a, result.Outcome)
	return nil
}
