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

var deleteScope string

var deleteCmd = &cobra.Command{
	Use:   "delete <branch>",
	Short: "Untrack and remove a branch, reparenting its children",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteScope, "scope", "single", "deletion scope: single|upstack|downstack")
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])
	scope := planner.DeleteScope(deleteScope)

	result, err := lifecycle.Run(context.Background(), a.deps(), "delete", gating.Mutating, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			return planner.PlanDelete(opID, ctx.Snapshot, branch, scope, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("delete", result.Repair)
		return nil
	}
	reportOutcome(a, result.Outcome)
	return nil
}
