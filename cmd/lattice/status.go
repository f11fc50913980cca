package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/scanner"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the tracked stack and any blocking issues",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", true)
	if err != nil {
		return err
	}

	snap, err := scanner.Scan(a.repo, a.metaStore, a.ledger, domain.BranchName(a.cfg.Trunk), a.repo.CommonDir(), time.Now())
	if err != nil {
		return err
	}

	if a.out.IsJSON() {
		return a.out.JSON(snap)
	}

	a.out.Header("stack")
	for _, branch := range snap.Graph.TopologicalOrder(snap.TrackedBranches()) {
		meta := snap.Metadata[branch]
		line := fmt.Sprintf("  %s -> %s", branch, meta.Parent)
		if meta.Freeze.Frozen() {
			line += fmt.Sprintf(" [frozen:%s]", meta.Freeze.Scope)
		}
		if meta.PR != nil {
			line += fmt.Sprintf(" [PR #%d %s]", meta.PR.Number, meta.PR.State)
		}
		a.out.Info(line)
	}

	if len(snap.Issues) > 0 {
		a.out.Header("issues")
		for _, issue := range snap.Issues {
			a.out.Warning(fmt.Sprintf("  %s: %s (%s)", issue.ID, issue.Branch, issue.Message))
		}
	} else {
		a.out.Success("no issues found")
	}
	return nil
}
