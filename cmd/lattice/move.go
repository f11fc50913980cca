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

var moveParent string

var moveCmd = &cobra.Command{
	Use:   "move <branch>",
	Short: "Reparent a tracked branch onto a different parent, without rewriting history",
	Args:  cobra.ExactArgs(1),
	RunE:  runMove,
}

func init() {
	moveCmd.Flags().StringVar(&moveParent, "parent", "", "new parent branch (required)")
	moveCmd.MarkFlagRequired("parent")
}

func runMove(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])
	newParent := domain.BranchName(moveParent)

	result, err := lifecycle.Run(context.Background(), a.deps(), "move", gating.MutatingMetadataOnly, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			newParentTip, ok := ctx.Snapshot.BranchTips[newParent]
			if !ok {
				return nil, fmt.Errorf("new parent branch %q has no local ref", newParent)
			}
			branchTip, ok := ctx.Snapshot.BranchTips[branch]
			if !ok {
				return nil, fmt.Errorf("branch %q has no local ref", branch)
			}
			base, ok, err := a.repo.MergeBase(newParentTip, branchTip)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("no merge base between %q and %q", branch, newParent)
			}
			return planner.PlanMove(opID, ctx.Snapshot, branch, newParent, base, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("move", result.Repair)
		return nil
	}
	a.out.Success(fmt.Sprintf("moved %s onto %s", branch, newParent))
	a.out.Info("run `lattice restack` to rebase onto the new parent")
	return nil
}
