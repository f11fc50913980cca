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

var renameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a tracked branch, reparenting its children onto the new name",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	oldName := domain.BranchName(args[0])
	newName := domain.BranchName(args[1])

	result, err := lifecycle.Run(context.Background(), a.deps(), "rename", gating.Mutating, oldName,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			return planner.PlanRename(opID, ctx.Snapshot, oldName, newName, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("rename", result.Repair)
		return nil
	}
	reportOutcome(a, result.Outcome)
	return nil
}
