package scanner

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/gitrepo"
	"github.com/lcgerke/lattice/internal/storage"
)

func initTestRepo(t *testing.T) (*gitrepo.Repo, string) {
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
	run("init", "-q", "-b", "main")
	run("config", "user.email", "t@t.com")
	run("config", "user.name", "t")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "README.md")
	run("commit", "-q", "-m", "initial")
	run("checkout", "-q", "-b", "feat-a")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "a.txt")
	run("commit", "-q", "-m", "feat-a commit")
	run("checkout", "-q", "main")

	r, err := gitrepo.Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return r, filepath.Join(dir, ".git")
}

func TestScan_UntrackedBranchProducesIssue(t *testing.T) {
	repo, commonDir := initTestRepo(t)
	metaStore := storage.NewMetadataStore(repo)
	ledger := storage.NewLedger(repo)
	now := time.Unix(1700000000, 0).UTC()

	snap, err := Scan(repo, metaStore, ledger, "main", commonDir, now)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if !snap.Capabilities.RepoOpen || !snap.Capabilities.TrunkKnown {
		t.Errorf("expected basic capabilities satisfied, got %+v", snap.Capabilities)
	}
	if !snap.Capabilities.GraphValid {
		t.Errorf("expected valid graph for empty metadata set")
	}

	found := false
	for _, issue := range snap.Issues {
		if issue.ID == IssueBranchWithoutMetadata && issue.Branch == "feat-a" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected UNTRACKED_BRANCH issue for feat-a, got %+v", snap.Issues)
	}
}

func TestScan_TrackedBranchNoIssues(t *testing.T) {
	repo, commonDir := initTestRepo(t)
	metaStore := storage.NewMetadataStore(repo)
	ledger := storage.NewLedger(repo)
	now := time.Unix(1700000000, 0).UTC()

	mainTip, err := repo.ResolveRef(domain.HeadsRefname("main"))
	if err != nil {
		t.Fatalf("ResolveRef failed: %v", err)
	}
	meta := domain.NewBranchMetadata("feat-a", "main", mainTip, now)
	if _, err := metaStore.WriteCAS("feat-a", domain.ZeroOID, meta); err != nil {
		t.Fatalf("WriteCAS failed: %v", err)
	}

	snap, err := Scan(repo, metaStore, ledger, "main", commonDir, now)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	for _, issue := range snap.Issues {
		if issue.Branch == "feat-a" {
			t.Errorf("expected no issues for tracked feat-a, got %+v", issue)
		}
	}
	if _, ok := snap.Metadata["feat-a"]; !ok {
		t.Fatal("expected feat-a to appear in snapshot metadata")
	}
}

func TestBuildGraph_FindCycle(t *testing.T) {
	metadata := map[domain.BranchName]domain.Structural{
		"a": {Branch: "a", Parent: "b"},
		"b": {Branch: "b", Parent: "a"},
	}
	g := BuildGraph("main", metadata)
	cyc := g.FindCycle()
	if cyc == nil {
		t.Fatal("expected a cycle to be detected")
	}
}

func TestBuildGraph_NoCycleThroughTrunk(t *testing.T) {
	metadata := map[domain.BranchName]domain.Structural{
		"a": {Branch: "a", Parent: "main"},
		"b": {Branch: "b", Parent: "a"},
	}
	g := BuildGraph("main", metadata)
	if cyc := g.FindCycle(); cyc != nil {
		t.Fatalf("expected no cycle, got %v", cyc)
	}
}

func TestGraph_TopologicalOrder(t *testing.T) {
	metadata := map[domain.BranchName]domain.Structural{
		"a": {Branch: "a", Parent: "main"},
		"b": {Branch: "b", Parent: "a"},
		"c": {Branch: "c", Parent: "b"},
	}
	g := BuildGraph("main", metadata)
	order := g.TopologicalOrder([]domain.BranchName{"c", "a", "b"})
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("expected [a b c], got %v", order)
	}
}
