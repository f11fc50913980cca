package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/gating"
	"github.com/lcgerke/lattice/internal/lifecycle"
	"github.com/lcgerke/lattice/internal/planner"
)

var foldCmd = &cobra.Command{
	Use:   "fold <branch>",
	Short: "Absorb a branch's commits into its parent and stop tracking it",
	Args:  cobra.ExactArgs(1),
	RunE:  runFold,
}

func runFold(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])

	result, err := lifecycle.Run(context.Background(), a.deps(), "fold", gating.Mutating, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			return planner.PlanFold(opID, ctx.Snapshot, branch, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("fold", result.Repair)
		return nil
	}
	reportOutcome(a, result.Outcome)
	a.out.Info(fmt.Sprintf("%s no longer exists; its parent now carries its commits", branch))
	return nil
}
