// Package lifecycle is the single driver shared by every mutating
// command: Scan → Gate → (Repair) → Plan → Execute → Verify. It
// generalizes a sequential named-checks-accumulating-into-one-result shape
// into one reusable function parameterized by a command's RequirementSet
// and its planner function.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/executor"
	"github.com/lcgerke/lattice/internal/gating"
	"github.com/lcgerke/lattice/internal/gitrepo"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/lcgerke/lattice/internal/scanner"
	"github.com/lcgerke/lattice/internal/storage"
)

// PlanFunc compiles a gating.ReadyContext into a plan for a specific
// command. opID is pre-generated so the plan and the op-state it starts
// share identity.
type PlanFunc func(opID string, ctx *gating.ReadyContext, now time.Time) (*planner.Plan, error)

// Result is what every run of the lifecycle produces. Exactly one of
// Repair or Outcome is set, unless an error short-circuited the run.
type Result struct {
	Snapshot *scanner.RepoSnapshot
	Repair   *gating.RepairBundle
	Outcome  *executor.Outcome
}

// Deps bundles the collaborators a driven command needs, so Run's own
// signature stays short.
type Deps struct {
	Repo      *gitrepo.Repo
	MetaStore *storage.MetadataStore
	Ledger    *storage.Ledger
	CommonDir string
	Trunk     domain.BranchName
	Logger    *zap.SugaredLogger
}

// Run executes the full Scan → Gate → Plan → Execute sequence for one
// command. branch is the command's declared target (ignored unless req's
// scope hint is single-branch). planFn is only invoked once gating
// succeeds; a blocked gate returns a Result carrying a RepairBundle and a
// nil error, exactly like a teacher diagnostic check that reports
// "warning" without aborting the whole run.
func Run(ctx context.Context, deps Deps, command string, req gating.RequirementSet, branch domain.BranchName, planFn PlanFunc, now time.Time) (*Result, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.With("command", command)

	log.Debugw("scanning repository")
	snap, err := scanner.Scan(deps.Repo, deps.MetaStore, deps.Ledger, deps.Trunk, deps.CommonDir, now)
	if err != nil {
		log.Errorw("scan failed", "error", err)
		return nil, err
	}

	log.Debugw("gating command", "capabilities", req.Capabilities)
	readyCtx, repair, err := gating.Gate(command, req, snap, branch)
	if err != nil {
		log.Errorw("gate failed", "error", err)
		return nil, err
	}
	if repair != nil {
		log.Infow("command blocked, repair required",
			"missing_capabilities", repair.MissingCapabilities,
			"blocking_issues", len(repair.BlockingIssues))
		return &Result{Snapshot: snap, Repair: repair}, nil
	}

	opID := uuid.NewString()
	log = log.With("op_id", opID)

	log.Debugw("planning")
	plan, err := planFn(opID, readyCtx, now)
	if err != nil {
		log.Errorw("planning failed", "error", err)
		return nil, err
	}

	log.Infow("executing plan", "steps", len(plan.Steps))
	outcome, err := executor.Execute(ctx, deps.Repo, deps.MetaStore, deps.Ledger, deps.CommonDir, plan, deps.Trunk, snap.Fingerprint, 0, false, now)
	if err != nil {
		log.Errorw("execute failed", "error", err)
		return nil, err
	}
	log.Infow("plan finished", "outcome", outcome.Kind)

	return &Result{Snapshot: snap, Outcome: outcome}, nil
}

// Continue resumes a paused operation from its recorded NextStepIndex,
// the same Execute call but skipping the completed prefix and marking
// the caller as a recovery command so the in-flight guard admits it.
func Continue(ctx context.Context, deps Deps, plan *planner.Plan, startIndex int, fingerprintBefore string, now time.Time) (*Result, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.With("op_id", plan.OpID, "resume_at", startIndex)

	log.Infow("resuming paused operation")
	outcome, err := executor.Execute(ctx, deps.Repo, deps.MetaStore, deps.Ledger, deps.CommonDir, plan, deps.Trunk, fingerprintBefore, startIndex, true, now)
	if err != nil {
		log.Errorw("resume failed", "error", err)
		return nil, err
	}
	return &Result{Outcome: outcome}, nil
}

// Abort rolls back a paused or in-flight operation identified by opID,
// restoring every journaled ref and metadata ref to its before-image.
func Abort(deps Deps, opID string, reason string, now time.Time) error {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log.Infow("aborting operation", "op_id", opID, "reason", reason)
	return executor.Abort(deps.Repo, deps.MetaStore, deps.Ledger, deps.CommonDir, opID, reason, now)
}
