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

var modifyCmd = &cobra.Command{
	Use:   "modify [branch]",
	Short: "Amend the tip commit of a branch (defaults to the current branch)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModify,
}

func runModify(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}

	var branch domain.BranchName
	if len(args) > 0 {
		branch = domain.BranchName(args[0])
	} else {
		status, err := a.repo.WorktreeStatusFor()
		if err != nil {
			return err
		}
		if status.Branch == "" {
			return fmt.Errorf("HEAD is detached; pass a branch name explicitly")
		}
		branch = status.Branch
	}

	result, err := lifecycle.Run(context.Background(), a.deps(), "modify", gating.Mutating, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			return planner.PlanModify(opID, ctx.Snapshot, branch, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("modify", result.Repair)
		return nil
	}
	reportOutcome(a, result.Outcome)
	a.out.Info("descendants were not restacked; run `lattice restack --stack` to cascade this change")
	return nil
}
