package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/gating"
	"github.com/lcgerke/lattice/internal/lifecycle"
	"github.com/lcgerke/lattice/internal/planner"
)

var splitAt string

var splitCmd = &cobra.Command{
	Use:   "split <branch> <lower-branch-name>",
	Short: "Divide a tracked branch into two at a chosen commit boundary",
	Args:  cobra.ExactArgs(2),
	RunE:  runSplit,
}

func init() {
	splitCmd.Flags().StringVar(&splitAt, "at", "", "commit-ish boundary; everything from here down becomes <lower-branch-name> (required)")
	splitCmd.MarkFlagRequired("at")
}

func runSplit(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])
	lowerName := domain.BranchName(args[1])

	ctx := context.Background()
	out, err := a.repo.RunGit(ctx, "rev-parse", splitAt)
	if err != nil {
		return fmt.Errorf("could not resolve boundary %q: %w", splitAt, err)
	}
	boundary := domain.ObjectID(strings.TrimSpace(out))

	result, err := lifecycle.Run(ctx, a.deps(), "split", gating.MutatingMetadataOnly, branch,
		func(opID string, gctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			tip, ok := gctx.Snapshot.BranchTips[branch]
			if !ok {
				return nil, fmt.Errorf("branch %q has no local ref", branch)
			}
			meta, ok := gctx.Snapshot.Metadata[branch]
			if !ok {
				return nil, fmt.Errorf("branch %q is not tracked", branch)
			}
			ancestorOfTip, err := a.repo.IsAncestor(boundary, tip)
			if err != nil {
				return nil, err
			}
			baseIsAncestor, err := a.repo.IsAncestor(meta.Base, boundary)
			if err != nil {
				return nil, err
			}
			if !ancestorOfTip || !baseIsAncestor {
				return nil, fmt.Errorf("boundary %q is not strictly between %s's base and tip", splitAt, branch)
			}
			return planner.PlanSplit(opID, gctx.Snapshot, branch, lowerName, boundary, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("split", result.Repair)
		return nil
	}
	reportOutcome(a, result.Outcome)
	a.out.Success(fmt.Sprintf("split %s: %s now starts at %s", branch, lowerName, splitAt))
	return nil
}
