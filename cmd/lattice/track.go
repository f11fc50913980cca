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

var trackParent string

var trackCmd = &cobra.Command{
	Use:   "track <branch>",
	Short: "Start tracking an existing branch in the stack",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrack,
}

func init() {
	trackCmd.Flags().StringVar(&trackParent, "parent", "", "parent branch (defaults to the configured trunk)")
}

func runTrack(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])
	parent := domain.BranchName(trackParent)
	if parent == "" {
		parent = domain.BranchName(a.cfg.Trunk)
	}

	result, err := lifecycle.Run(context.Background(), a.deps(), "track", gating.MutatingMetadataOnly, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			parentTip, ok := ctx.Snapshot.BranchTips[parent]
			if !ok {
				return nil, fmt.Errorf("parent branch %q has no local ref", parent)
			}
			branchTip, ok := ctx.Snapshot.BranchTips[branch]
			if !ok {
				return nil, fmt.Errorf("branch %q has no local ref", branch)
			}
			base, ok, err := a.repo.MergeBase(parentTip, branchTip)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("no merge base between %q and %q", branch, parent)
			}
			return planner.PlanTrack(opID, ctx.Snapshot, branch, parent, base, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("track", result.Repair)
		return nil
	}
	a.out.Success(fmt.Sprintf("tracking %s onto %s", branch, parent))
	return nil
}
