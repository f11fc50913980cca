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

var createParent string

var createCmd = &cobra.Command{
	Use:   "create <branch>",
	Short: "Create a new branch on top of trunk (or --parent) and start tracking it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createParent, "parent", "", "parent branch (defaults to the configured trunk)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])
	parent := domain.BranchName(createParent)
	if parent == "" {
		parent = domain.BranchName(a.cfg.Trunk)
	}

	result, err := lifecycle.Run(context.Background(), a.deps(), "create", gating.Mutating, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			parentTip, ok := ctx.Snapshot.BranchTips[parent]
			if !ok {
				return nil, fmt.Errorf("parent branch %q has no local ref", parent)
			}
			return planner.PlanCreate(opID, ctx.Snapshot, branch, parent, parentTip, at)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("create", result.Repair)
		return nil
	}
	a.out.Success(fmt.Sprintf("created %s onto %s", branch, parent))
	return nil
}
