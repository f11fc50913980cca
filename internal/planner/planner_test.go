package planner

import (
	"testing"
	"time"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/scanner"
)

func fixedNow() time.Time { return time.Unix(1700000000, 0).UTC() }

func buildSnapshot() *scanner.RepoSnapshot {
	now := fixedNow()
	snap := &scanner.RepoSnapshot{
		Trunk: "main",
		BranchTips: map[domain.BranchName]domain.ObjectID{
			"main":   domain.ObjectID("1111111111111111111111111111111111111111"),
			"feat-a": domain.ObjectID("2222222222222222222222222222222222222222"),
			"feat-b": domain.ObjectID("3333333333333333333333333333333333333333"),
		},
		Metadata: map[domain.BranchName]*domain.BranchMetadata{
			"feat-a": domain.NewBranchMetadata("feat-a", "main", domain.ObjectID("0000000000000000000000000000000000000a"), now),
			"feat-b": domain.NewBranchMetadata("feat-b", "feat-a", domain.ObjectID("0000000000000000000000000000000000000b"), now),
		},
		MetadataRefOids: map[domain.BranchName]domain.ObjectID{
			"feat-a": domain.ObjectID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
			"feat-b": domain.ObjectID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		},
	}
	snap.Graph = scanner.BuildGraph("main", map[domain.BranchName]domain.Structural{
		"feat-a": snap.Metadata["feat-a"].AsStructural(),
		"feat-b": snap.Metadata["feat-b"].AsStructural(),
	})
	return snap
}

func TestPlanRestack_EmitsCheckpointRebasePauseAndMetadata(t *testing.T) {
	snap := buildSnapshot()
	order := snap.Graph.TopologicalOrder([]domain.BranchName{"feat-a", "feat-b"})
	plan, err := PlanRestack("op-1", snap, order, fixedNow())
	if err != nil {
		t.Fatalf("PlanRestack failed: %v", err)
	}
	if len(plan.Steps) == 0 {
		t.Fatal("expected non-empty plan")
	}
	if plan.Steps[0].Kind != StepCheckpoint {
		t.Errorf("expected first step to be a checkpoint, got %v", plan.Steps[0].Kind)
	}
	var sawPause, sawMeta bool
	for _, s := range plan.Steps {
		if s.Kind == StepPotentialConflictPause {
			sawPause = true
		}
		if s.Kind == StepWriteMetadataCas {
			sawMeta = true
		}
	}
	if !sawPause || !sawMeta {
		t.Errorf("expected both a pause step and a metadata write, got %+v", plan.Steps)
	}
}

func TestPlanRestack_SkipsBranchAlreadyBasedOnParentTip(t *testing.T) {
	snap := buildSnapshot()
	snap.Metadata["feat-a"].Base = snap.BranchTips["main"]
	plan, err := PlanRestack("op-1", snap, []domain.BranchName{"feat-a"}, fixedNow())
	if err != nil {
		t.Fatalf("PlanRestack failed: %v", err)
	}
	if len(plan.Steps) != 0 {
		t.Errorf("expected no steps for an already-based branch, got %+v", plan.Steps)
	}
}

func TestPlanRestack_RefusesFrozenBranch(t *testing.T) {
	snap := buildSnapshot()
	snap.Metadata["feat-a"].Freeze = domain.Freeze{Scope: domain.FreezeOnly, Reason: "release cut"}
	_, err := PlanRestack("op-1", snap, []domain.BranchName{"feat-a"}, fixedNow())
	if err == nil {
		t.Fatal("expected an error for a frozen branch")
	}
}

func TestPlanDelete_SingleReparentsChildren(t *testing.T) {
	snap := buildSnapshot()
	plan, err := PlanDelete("op-2", snap, "feat-a", DeleteSingle, fixedNow())
	if err != nil {
		t.Fatalf("PlanDelete failed: %v", err)
	}

	var reparented, deletedRef bool
	for _, s := range plan.Steps {
		if s.Kind == StepWriteMetadataCas && s.Branch == "feat-b" && s.Metadata.Parent == "main" {
			reparented = true
		}
		if s.Kind == StepDeleteRefCas && s.RefName == domain.HeadsRefname("feat-a") {
			deletedRef = true
		}
	}
	if !reparented {
		t.Errorf("expected feat-b to be re-parented onto main, got %+v", plan.Steps)
	}
	if !deletedRef {
		t.Errorf("expected feat-a's ref to be deleted, got %+v", plan.Steps)
	}
}

func TestPlanDelete_UpstackRemovesWholeSubtree(t *testing.T) {
	snap := buildSnapshot()
	plan, err := PlanDelete("op-3", snap, "feat-a", DeleteUpstack, fixedNow())
	if err != nil {
		t.Fatalf("PlanDelete failed: %v", err)
	}
	deletedBranches := map[domain.BranchName]bool{}
	for _, s := range plan.Steps {
		if s.Kind == StepDeleteMetadataCas {
			deletedBranches[s.Branch] = true
		}
	}
	if !deletedBranches["feat-a"] || !deletedBranches["feat-b"] {
		t.Errorf("expected both feat-a and feat-b deleted, got %+v", deletedBranches)
	}
}

func TestPlanRename_MovesMetadataAndReparentsChildren(t *testing.T) {
	snap := buildSnapshot()
	plan, err := PlanRename("op-4", snap, "feat-a", "feat-a-renamed", fixedNow())
	if err != nil {
		t.Fatalf("PlanRename failed: %v", err)
	}

	var sawRunGit, sawNewMeta, sawOldDelete, sawChildReparent bool
	for _, s := range plan.Steps {
		switch {
		case s.Kind == StepRunGit:
			sawRunGit = true
		case s.Kind == StepWriteMetadataCas && s.Branch == "feat-a-renamed":
			sawNewMeta = true
		case s.Kind == StepDeleteMetadataCas && s.Branch == "feat-a":
			sawOldDelete = true
		case s.Kind == StepWriteMetadataCas && s.Branch == "feat-b" && s.Metadata.Parent == "feat-a-renamed":
			sawChildReparent = true
		}
	}
	if !sawRunGit || !sawNewMeta || !sawOldDelete || !sawChildReparent {
		t.Errorf("missing expected step in rename plan: %+v", plan.Steps)
	}
}

func TestPlan_DigestStableForEqualInputs(t *testing.T) {
	snap := buildSnapshot()
	order := snap.Graph.TopologicalOrder([]domain.BranchName{"feat-a", "feat-b"})
	p1, err := PlanRestack("op-1", snap, order, fixedNow())
	if err != nil {
		t.Fatalf("PlanRestack failed: %v", err)
	}
	p2, err := PlanRestack("op-1", snap, order, fixedNow())
	if err != nil {
		t.Fatalf("PlanRestack failed: %v", err)
	}
	if p1.Digest() != p2.Digest() {
		t.Errorf("expected equal-input plans to have equal digests, got %s vs %s", p1.Digest(), p2.Digest())
	}
}
