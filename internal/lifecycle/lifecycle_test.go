package lifecycle

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/gating"
	"github.com/lcgerke/lattice/internal/gitrepo"
	"github.com/lcgerke/lattice/internal/planner"
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

func TestRun_TracksBranchThenSucceeds(t *testing.T) {
	repo, commonDir := initTestRepo(t)
	deps := Deps{
		Repo:      repo,
		MetaStore: storage.NewMetadataStore(repo),
		Ledger:    storage.NewLedger(repo),
		CommonDir: commonDir,
		Trunk:     "main",
	}
	now := time.Unix(1700000000, 0).UTC()

	planFn := func(opID string, rc *gating.ReadyContext, now time.Time) (*planner.Plan, error) {
		mainTip := rc.Snapshot.BranchTips["main"]
		meta := domain.NewBranchMetadata("feat-a", "main", mainTip, now)
		return &planner.Plan{
			OpID:        opID,
			Command:     "track",
			Steps:       []planner.Step{planner.NewStepWriteMetadataCas("feat-a", domain.ZeroOID, meta)},
			TouchedRefs: []domain.Refname{domain.MetadataRefname("feat-a")},
		}, nil
	}

	result, err := Run(context.Background(), deps, "track", gating.MutatingMetadataOnly, "feat-a", planFn, now)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Repair != nil {
		t.Fatalf("expected no repair needed, got %+v", result.Repair)
	}
	if result.Outcome == nil || result.Outcome.Kind != "success" {
		t.Fatalf("expected success outcome, got %+v", result.Outcome)
	}
}

func TestRun_BlockedByLatticeOpInProgressReturnsRepair(t *testing.T) {
	repo, commonDir := initTestRepo(t)
	deps := Deps{
		Repo:      repo,
		MetaStore: storage.NewMetadataStore(repo),
		Ledger:    storage.NewLedger(repo),
		CommonDir: commonDir,
		Trunk:     "main",
	}
	now := time.Unix(1700000000, 0).UTC()

	if err := storage.EnsureSharedDir(commonDir); err != nil {
		t.Fatalf("EnsureSharedDir failed: %v", err)
	}
	if err := storage.WriteOpState(commonDir, storage.OpState{
		OpID: "stuck-op", Command: "restack", Phase: storage.PhaseExecuting,
	}); err != nil {
		t.Fatalf("WriteOpState failed: %v", err)
	}

	planFn := func(opID string, rc *gating.ReadyContext, now time.Time) (*planner.Plan, error) {
		t.Fatal("planFn should not be called when gating blocks the command")
		return nil, nil
	}

	result, err := Run(context.Background(), deps, "track", gating.MutatingMetadataOnly, "feat-a", planFn, now)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Repair == nil {
		t.Fatal("expected a repair bundle")
	}
	found := false
	for _, m := range result.Repair.MissingCapabilities {
		if m == "NoLatticeOpInProgress" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected NoLatticeOpInProgress to be missing, got %+v", result.Repair.MissingCapabilities)
	}
}

func TestAbort_RollsBackJournaledMetadataWrite(t *testing.T) {
	repo, commonDir := initTestRepo(t)
	metaStore := storage.NewMetadataStore(repo)
	ledger := storage.NewLedger(repo)
	deps := Deps{Repo: repo, MetaStore: metaStore, Ledger: ledger, CommonDir: commonDir, Trunk: "main"}
	now := time.Unix(1700000000, 0).UTC()

	mainTip, err := repo.ResolveRef(domain.HeadsRefname("main"))
	if err != nil {
		t.Fatalf("ResolveRef failed: %v", err)
	}
	meta := domain.NewBranchMetadata("feat-a", "main", mainTip, now)
	newBlobOid, err := metaStore.WriteCAS("feat-a", domain.ZeroOID, meta)
	if err != nil {
		t.Fatalf("WriteCAS failed: %v", err)
	}

	if err := storage.EnsureSharedDir(commonDir); err != nil {
		t.Fatalf("EnsureSharedDir failed: %v", err)
	}
	if err := storage.WriteOpState(commonDir, storage.OpState{
		OpID: "op-abort-1", Command: "track", Phase: storage.PhaseExecuting,
	}); err != nil {
		t.Fatalf("WriteOpState failed: %v", err)
	}
	journal, err := storage.LoadJournal(commonDir, "op-abort-1")
	if err != nil {
		t.Fatalf("LoadJournal failed: %v", err)
	}
	before, _ := json.Marshal(struct {
		Branch  domain.BranchName `json:"branch"`
		Existed bool              `json:"existed"`
		RefOid  domain.ObjectID   `json:"ref_oid,omitempty"`
	}{"feat-a", false, ""})
	after, _ := json.Marshal(struct {
		Branch  domain.BranchName `json:"branch"`
		Existed bool              `json:"existed"`
		RefOid  domain.ObjectID   `json:"ref_oid,omitempty"`
	}{"feat-a", true, newBlobOid})
	if err := journal.Append(commonDir, storage.JournalEntry{
		Index: 0, Kind: storage.StepWriteMetadataCas, Before: before, After: after,
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := Abort(deps, "op-abort-1", "test abort", now); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}

	if _, ok, err := metaStore.Read("feat-a"); err != nil || ok {
		t.Errorf("expected feat-a's metadata to be rolled back, ok=%v err=%v", ok, err)
	}
	if _, inFlight, _ := storage.ReadOpState(commonDir); inFlight {
		t.Error("expected op-state to be cleared after abort")
	}
}
