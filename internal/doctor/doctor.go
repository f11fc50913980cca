// Package doctor turns scanner issues into fix options and composes
// selected fixes into a single planner.Plan run through the same
// executor every mutating command uses. Doctor is a
// consumer of gating failures, not a special mutation path: every fix it
// proposes is a pure function of (issue, snapshot).
package doctor

import (
	"fmt"
	"sort"
	"time"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/gitrepo"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/lcgerke/lattice/internal/scanner"
)

// FixOption is one candidate repair: a stable id, a human description, a
// preview of the ref/metadata changes it makes, and the capabilities the
// lifecycle must gate before it can run.
type FixOption struct {
	FixID                string
	Description          string
	Preview              []string
	RequiredCapabilities []string
}

type fixApplier func(snap *scanner.RepoSnapshot, now time.Time) (steps []planner.Step, touched []domain.Refname, err error)

// DiagnosisReport is Diagnose's output: every issue found, the fix options
// generated for them, and a one-line summary. appliers resolves a FixID
// back to the function that compiles it into plan steps; it is not
// exported, since fix selection happens by id, never by calling a
// function value directly.
type DiagnosisReport struct {
	Issues   []scanner.Issue
	Fixes    []FixOption
	Summary  string
	appliers map[string]fixApplier
}

// Diagnose builds a DiagnosisReport from snap's issues.
func Diagnose(repo *gitrepo.Repo, snap *scanner.RepoSnapshot) (*DiagnosisReport, error) {
	report := &DiagnosisReport{Issues: snap.Issues, appliers: map[string]fixApplier{}}

	for _, issue := range snap.Issues {
		var opts []FixOption
		var err error
		switch issue.ID {
		case scanner.IssueBranchWithoutMetadata:
			opts, err = fixesForUntrackedBranch(repo, snap, issue, report.appliers)
		case scanner.IssueOrphanedMetadata:
			opts = fixesForOrphanedMetadata(snap, issue, report.appliers)
		case scanner.IssueCycleDetected:
			opts = fixesForCycle(snap, report.appliers)
		case scanner.IssueParentMissing:
			opts = fixesForParentMissing(snap, issue, report.appliers)
		case scanner.IssueMetadataUnparseable:
			opts = fixesForUnparseableMetadata(snap, issue, report.appliers)
		}
		if err != nil {
			return nil, err
		}
		report.Fixes = append(report.Fixes, opts...)
	}

	report.Summary = fmt.Sprintf("%d issue(s), %d fix option(s)", len(report.Issues), len(report.Fixes))
	return report, nil
}

// RepairPlan composes the fixes named by fixIDs into one plan. Unknown
// ids (not present in report) are a hard error: doctor never auto-selects.
func RepairPlan(report *DiagnosisReport, opID string, fixIDs []string, snap *scanner.RepoSnapshot, now time.Time) (*planner.Plan, error) {
	if len(fixIDs) == 0 {
		return nil, latticeerrors.New(latticeerrors.KindEmptyScope, "no fix ids selected")
	}
	plan := &planner.Plan{OpID: opID, Command: "doctor"}
	for _, id := range fixIDs {
		apply, ok := report.appliers[id]
		if !ok {
			return nil, latticeerrors.WithEntity(
				latticeerrors.New(latticeerrors.KindInvalidState, "unknown fix id"), id)
		}
		steps, touched, err := apply(snap, now)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, steps...)
		plan.TouchedRefs = append(plan.TouchedRefs, touched...)
	}
	return plan, nil
}

// fixesForUntrackedBranch implements the bootstrap fix for an untracked
// branch: rank
// candidate parents (trunk plus every already-tracked branch) by
// merge-base distance from the untracked branch's tip, and propose a fix
// for every candidate tied at the minimum distance.
func fixesForUntrackedBranch(repo *gitrepo.Repo, snap *scanner.RepoSnapshot, issue scanner.Issue, appliers map[string]fixApplier) ([]FixOption, error) {
	branch := issue.Branch
	tip, ok := snap.BranchTips[branch]
	if !ok {
		return nil, nil
	}

	type candidate struct {
		parent domain.BranchName
		base   domain.ObjectID
		dist   uint64
	}
	var candidates []candidate

	consider := func(parent domain.BranchName) {
		parentTip, ok := snap.BranchTips[parent]
		if !ok || parent == branch {
			return
		}
		mergeBase, found, err := repo.MergeBase(tip, parentTip)
		if err != nil || !found {
			return
		}
		dist, err := repo.CommitCount(mergeBase, tip)
		if err != nil {
			return
		}
		candidates = append(candidates, candidate{parent: parent, base: mergeBase, dist: dist})
	}

	consider(snap.Trunk)
	for tracked := range snap.Metadata {
		consider(tracked)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	min := candidates[0].dist

	var opts []FixOption
	for _, c := range candidates {
		if c.dist != min {
			break
		}
		c := c
		fixID := fmt.Sprintf("untracked_branch:track:%s:%s", branch, c.parent)
		opts = append(opts, FixOption{
			FixID:                fixID,
			Description:          fmt.Sprintf("track %s with parent %s (base %s)", branch, c.parent, c.base),
			Preview:              []string{fmt.Sprintf("create refs/branch-metadata/%s: parent=%s base=%s", branch, c.parent, c.base)},
			RequiredCapabilities: []string{"MetadataReadable", "GraphValid"},
		})
		appliers[fixID] = func(snap *scanner.RepoSnapshot, now time.Time) ([]planner.Step, []domain.Refname, error) {
			meta := domain.NewBranchMetadata(branch, c.parent, c.base, now)
			return []planner.Step{planner.NewStepWriteMetadataCas(branch, domain.ZeroOID, meta)},
				[]domain.Refname{domain.MetadataRefname(branch)}, nil
		}
	}
	return opts, nil
}

func fixesForOrphanedMetadata(snap *scanner.RepoSnapshot, issue scanner.Issue, appliers map[string]fixApplier) []FixOption {
	branch := issue.Branch
	refOid, ok := snap.MetadataRefOids[branch]
	if !ok {
		return nil
	}
	fixID := fmt.Sprintf("orphaned_metadata:untrack:%s", branch)
	appliers[fixID] = func(snap *scanner.RepoSnapshot, now time.Time) ([]planner.Step, []domain.Refname, error) {
		return []planner.Step{planner.NewStepDeleteMetadataCas(branch, refOid)},
			[]domain.Refname{domain.MetadataRefname(branch)}, nil
	}
	return []FixOption{{
		FixID:                fixID,
		Description:          fmt.Sprintf("remove orphaned metadata for %s (branch ref no longer exists)", branch),
		Preview:              []string{fmt.Sprintf("delete refs/branch-metadata/%s", branch)},
		RequiredCapabilities: []string{"MetadataReadable"},
	}}
}

// fixesForCycle proposes, for each branch in the first detected cycle, a
// fix that re-parents that branch onto trunk — any one of which breaks
// the cycle. The caller disambiguates, same as the bootstrap fix.
func fixesForCycle(snap *scanner.RepoSnapshot, appliers map[string]fixApplier) []FixOption {
	cyc := snap.Graph.FindCycle()
	if cyc == nil {
		return nil
	}
	trunk := snap.Trunk
	var opts []FixOption
	for _, branch := range cyc {
		branch := branch
		meta, ok := snap.Metadata[branch]
		if !ok {
			continue
		}
		fixID := fmt.Sprintf("cycle_detected:reparent:%s", branch)
		appliers[fixID] = func(snap *scanner.RepoSnapshot, now time.Time) ([]planner.Step, []domain.Refname, error) {
			updated := *meta
			updated.Parent = trunk
			updated.UpdatedAt = now
			return []planner.Step{planner.NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated)},
				[]domain.Refname{domain.MetadataRefname(branch)}, nil
		}
		opts = append(opts, FixOption{
			FixID:                fixID,
			Description:          fmt.Sprintf("break the cycle by re-parenting %s onto %s", branch, trunk),
			Preview:              []string{fmt.Sprintf("update refs/branch-metadata/%s: parent=%s", branch, trunk)},
			RequiredCapabilities: []string{"MetadataReadable"},
		})
	}
	return opts
}

func fixesForParentMissing(snap *scanner.RepoSnapshot, issue scanner.Issue, appliers map[string]fixApplier) []FixOption {
	branch := issue.Branch
	meta, ok := snap.Metadata[branch]
	if !ok {
		return nil
	}
	trunk := snap.Trunk
	fixID := fmt.Sprintf("parent_missing:reparent:%s:%s", branch, trunk)
	appliers[fixID] = func(snap *scanner.RepoSnapshot, now time.Time) ([]planner.Step, []domain.Refname, error) {
		updated := *meta
		updated.Parent = trunk
		updated.UpdatedAt = now
		return []planner.Step{planner.NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated)},
			[]domain.Refname{domain.MetadataRefname(branch)}, nil
	}
	return []FixOption{{
		FixID:                fixID,
		Description:          fmt.Sprintf("re-parent %s onto %s (its configured parent is neither trunk nor tracked)", branch, trunk),
		Preview:              []string{fmt.Sprintf("update refs/branch-metadata/%s: parent=%s", branch, trunk)},
		RequiredCapabilities: []string{"MetadataReadable"},
	}}
}

func fixesForUnparseableMetadata(snap *scanner.RepoSnapshot, issue scanner.Issue, appliers map[string]fixApplier) []FixOption {
	branch := issue.Branch
	if branch == "" {
		return nil
	}
	refOid, ok := snap.MetadataRefOids[branch]
	if !ok {
		return nil
	}
	fixID := fmt.Sprintf("metadata_unparseable:untrack:%s", branch)
	appliers[fixID] = func(snap *scanner.RepoSnapshot, now time.Time) ([]planner.Step, []domain.Refname, error) {
		return []planner.Step{planner.NewStepDeleteMetadataCas(branch, refOid)},
			[]domain.Refname{domain.MetadataRefname(branch)}, nil
	}
	return []FixOption{{
		FixID:                fixID,
		Description:          fmt.Sprintf("remove %s's unparseable metadata record so it can be re-tracked from scratch", branch),
		Preview:              []string{fmt.Sprintf("delete refs/branch-metadata/%s", branch)},
		RequiredCapabilities: []string{},
	}}
}
