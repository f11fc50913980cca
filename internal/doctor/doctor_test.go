package doctor

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/gitrepo"
	"github.com/lcgerke/lattice/internal/scanner"
)

func initTestRepo(t *testing.T) *gitrepo.Repo {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	run("init", "-q", "-b", "main")
	run("config", "user.email", "t@t.com")
	run("config", "user.name", "t")
	write("README.md", "hello\n")
	run("add", "README.md")
	run("commit", "-q", "-m", "initial")
	run("checkout", "-q", "-b", "feat-a")
	write("a.txt", "a\n")
	run("add", "a.txt")
	run("commit", "-q", "-m", "feat-a commit")
	run("checkout", "-q", "main")

	r, err := gitrepo.Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return r
}

func TestDiagnose_UntrackedBranchYieldsBootstrapFix(t *testing.T) {
	repo := initTestRepo(t)
	mainTip, err := repo.ResolveRef(domain.HeadsRefname("main"))
	if err != nil {
		t.Fatalf("ResolveRef failed: %v", err)
	}
	featTip, err := repo.ResolveRef(domain.HeadsRefname("feat-a"))
	if err != nil {
		t.Fatalf("ResolveRef failed: %v", err)
	}

	snap := &scanner.RepoSnapshot{
		Trunk: "main",
		BranchTips: map[domain.BranchName]domain.ObjectID{
			"main":   mainTip,
			"feat-a": featTip,
		},
		Metadata:        map[domain.BranchName]*domain.BranchMetadata{},
		MetadataRefOids: map[domain.BranchName]domain.ObjectID{},
		Issues: []scanner.Issue{
			{ID: scanner.IssueBranchWithoutMetadata, Branch: "feat-a", Message: "branch exists but is not tracked"},
		},
	}

	report, err := Diagnose(repo, snap)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if len(report.Fixes) != 1 {
		t.Fatalf("expected exactly one bootstrap fix (only trunk is a candidate parent), got %+v", report.Fixes)
	}
	fix := report.Fixes[0]
	if fix.FixID != "untracked_branch:track:feat-a:main" {
		t.Errorf("unexpected fix id %q", fix.FixID)
	}

	now := time.Unix(1700000000, 0).UTC()
	plan, err := RepairPlan(report, "op-doctor-1", []string{fix.FixID}, snap, now)
	if err != nil {
		t.Fatalf("RepairPlan failed: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("expected one step, got %d", len(plan.Steps))
	}
}

func TestDiagnose_OrphanedMetadataYieldsUntrackFix(t *testing.T) {
	repo := initTestRepo(t)
	now := time.Unix(1700000000, 0).UTC()
	mainTip, err := repo.ResolveRef(domain.HeadsRefname("main"))
	if err != nil {
		t.Fatalf("ResolveRef failed: %v", err)
	}
	meta := domain.NewBranchMetadata("ghost", "main", mainTip, now)

	snap := &scanner.RepoSnapshot{
		Trunk:           "main",
		BranchTips:      map[domain.BranchName]domain.ObjectID{"main": mainTip},
		Metadata:        map[domain.BranchName]*domain.BranchMetadata{"ghost": meta},
		MetadataRefOids: map[domain.BranchName]domain.ObjectID{"ghost": domain.ObjectID("cccccccccccccccccccccccccccccccccccccccc")},
		Issues: []scanner.Issue{
			{ID: scanner.IssueOrphanedMetadata, Branch: "ghost", Message: "metadata exists but branch ref is missing"},
		},
	}

	report, err := Diagnose(repo, snap)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if len(report.Fixes) != 1 {
		t.Fatalf("expected one fix, got %+v", report.Fixes)
	}
	if report.Fixes[0].FixID != "orphaned_metadata:untrack:ghost" {
		t.Errorf("unexpected fix id %q", report.Fixes[0].FixID)
	}

	plan, err := RepairPlan(report, "op-doctor-2", []string{report.Fixes[0].FixID}, snap, now)
	if err != nil {
		t.Fatalf("RepairPlan failed: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("expected one step, got %d", len(plan.Steps))
	}
}

func TestRepairPlan_UnknownFixIDFails(t *testing.T) {
	repo := initTestRepo(t)
	snap := &scanner.RepoSnapshot{
		Trunk:           "main",
		BranchTips:      map[domain.BranchName]domain.ObjectID{},
		Metadata:        map[domain.BranchName]*domain.BranchMetadata{},
		MetadataRefOids: map[domain.BranchName]domain.ObjectID{},
	}
	report, err := Diagnose(repo, snap)
	if err != nil {
		t.Fatalf("Diagnose failed: %v", err)
	}
	if _, err := RepairPlan(report, "op-doctor-3", []string{"nonexistent:fix"}, snap, time.Unix(1700000000, 0).UTC()); err == nil {
		t.Fatal("expected an error for an unknown fix id")
	}
}
