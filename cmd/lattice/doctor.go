package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcgerke/lattice/internal/doctor"
	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/executor"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/storage"
)

var doctorFixIDs []string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose structural issues and apply confirmed repairs",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().StringSliceVar(&doctorFixIDs, "apply", nil, "fix ids to apply (from a prior `doctor` run); repeatable")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", true)
	if err != nil {
		return err
	}

	at := time.Now()
	snap, err := scanner.Scan(a.repo, a.metaStore, a.ledger, domain.BranchName(a.cfg.Trunk), a.repo.CommonDir(), at)
	if err != nil {
		return err
	}

	report, err := doctor.Diagnose(a.repo, snap)
	if err != nil {
		return err
	}

	if len(doctorFixIDs) == 0 {
		printDiagnosis(a, report)
		return nil
	}

	if err := storage.EnsureSharedDir(a.repo.CommonDir()); err != nil {
		return err
	}
	opID := "doctor-" + at.Format("20060102T150405.000000000")
	plan, err := doctor.RepairPlan(report, opID, doctorFixIDs, snap, at)
	if err != nil {
		return err
	}

	outcome, err := executor.Execute(cmd.Context(), a.repo, a.metaStore, a.ledger, a.repo.CommonDir(), plan, domain.BranchName(a.cfg.Trunk), snap.Fingerprint, 0, false, at)
	if err != nil {
		return err
	}
	reportOutcome(a, outcome)
	return nil
}

func printDiagnosis(a *app, report *doctor.DiagnosisReport) {
	if len(report.Issues) == 0 {
		a.out.Success("no issues found")
		return
	}
	a.out.Header("issues")
	for _, issue := range report.Issues {
		a.out.Warning(fmt.Sprintf("  %s: %s (%s)", issue.ID, issue.Branch, issue.Message))
	}
	if len(report.Fixes) == 0 {
		a.out.Info("no automatic fixes available; resolve manually")
		return
	}
	a.out.Header("available fixes")
	for _, fix := range report.Fixes {
		a.out.Info(fmt.Sprintf("  [%s] %s", fix.FixID, fix.Description))
		for _, line := range fix.Preview {
			a.out.Info("    " + line)
		}
	}
	a.out.Info("run `lattice doctor --apply <fix-id>` to apply one or more fixes")
}
