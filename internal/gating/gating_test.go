package gating

import (
	"testing"
	"time"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/scanner"
)

func fixedTime() time.Time { return time.Unix(1700000000, 0).UTC() }

func readySnapshot() *scanner.RepoSnapshot {
	snap := &scanner.RepoSnapshot{Trunk: "main"}
	snap.Capabilities = scanner.Capabilities{
		RepoOpen: true, TrunkKnown: true, NoLatticeOpInProgress: true,
		NoExternalGitOpInProgress: true, MetadataReadable: true, GraphValid: true,
		WorkingDirectoryAvailable: true, WorktreeStatusKnown: true, AuthAvailable: true,
		RemoteResolved: true, RepoAuthorized: true, FrozenPolicySatisfied: true,
	}
	snap.Graph = scanner.BuildGraph("main", map[domain.BranchName]domain.Structural{
		"feat-a": {Branch: "feat-a", Parent: "main"},
	})
	snap.Metadata = map[domain.BranchName]*domain.BranchMetadata{
		"feat-a": domain.NewBranchMetadata("feat-a", "main", domain.ZeroOID, fixedTime()),
	}
	return snap
}

func TestGate_ReadyForMutating(t *testing.T) {
	snap := readySnapshot()
	ctx, repair, err := Gate("restack", Mutating, snap, "feat-a")
	if err != nil {
		t.Fatalf("Gate failed: %v", err)
	}
	if repair != nil {
		t.Fatalf("expected no repair bundle, got %+v", repair)
	}
	if ctx.ScopeKind != ScopeBranch || ctx.Branch.Branch != "feat-a" {
		t.Errorf("unexpected scope: %+v", ctx)
	}
}

func TestGate_NeedsRepairWhenCapabilityMissing(t *testing.T) {
	snap := readySnapshot()
	snap.Capabilities.NoExternalGitOpInProgress = false
	snap.Issues = append(snap.Issues, scanner.Issue{ID: scanner.IssueExternalGitOp, Message: "rebase in progress"})

	ctx, repair, err := Gate("restack", Mutating, snap, "feat-a")
	if err != nil {
		t.Fatalf("Gate failed: %v", err)
	}
	if ctx != nil {
		t.Fatal("expected no ready context")
	}
	if repair == nil {
		t.Fatal("expected a repair bundle")
	}
	found := false
	for _, m := range repair.MissingCapabilities {
		if m == "NoExternalGitOpInProgress" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected NoExternalGitOpInProgress to be listed missing, got %v", repair.MissingCapabilities)
	}
	if len(repair.BlockingIssues) != 1 {
		t.Errorf("expected 1 blocking issue, got %d", len(repair.BlockingIssues))
	}
}

func TestGate_StackScopeResolvesTopologicalOrder(t *testing.T) {
	snap := readySnapshot()
	snap.Metadata["feat-b"] = domain.NewBranchMetadata("feat-b", "feat-a", domain.ZeroOID, fixedTime())
	snap.Graph = scanner.BuildGraph("main", map[domain.BranchName]domain.Structural{
		"feat-a": {Branch: "feat-a", Parent: "main"},
		"feat-b": {Branch: "feat-b", Parent: "feat-a"},
	})

	req := Mutating
	req.Scope = ScopeHintStack
	ctx, repair, err := Gate("restack-stack", req, snap, "")
	if err != nil {
		t.Fatalf("Gate failed: %v", err)
	}
	if repair != nil {
		t.Fatalf("expected no repair bundle, got %+v", repair)
	}
	if ctx.ScopeKind != ScopeStack {
		t.Fatalf("expected stack scope, got %v", ctx.ScopeKind)
	}
	if len(ctx.Stack.Branches) != 2 || ctx.Stack.Branches[0] != "feat-a" || ctx.Stack.Branches[1] != "feat-b" {
		t.Errorf("expected [feat-a feat-b], got %v", ctx.Stack.Branches)
	}
}
