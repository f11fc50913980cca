package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/lcgerke/lattice/internal/domain"
)

func initRepo(t *testing.T) string {
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
	return dir
}

func TestOpen_NormalRepository(t *testing.T) {
	dir := initRepo(t)

	r, err := Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if r.Context() != ContextNormal {
		t.Errorf("expected ContextNormal, got %v", r.Context())
	}
	if r.WorkDir() == "" {
		t.Error("expected non-empty work dir")
	}
}

func TestOpen_BareRepositoryRejectedByDefault(t *testing.T) {
	dir := t.TempDir()
	cmd := exec.Command("git", "init", "--bare", "-q", dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git init --bare: %v\n%s", err, out)
	}

	if _, err := Open(dir, false); err == nil {
		t.Fatal("expected bare repo to be rejected")
	}
	if _, err := Open(dir, true); err != nil {
		t.Fatalf("expected bare repo to be allowed with allowBare=true: %v", err)
	}
}

func TestOpen_NotARepository(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, false); err == nil {
		t.Fatal("expected error opening a non-repository directory")
	}
}

func TestRefCAS_CreateUpdateAndRejectStaleWrite(t *testing.T) {
	dir := initRepo(t)
	r, err := Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	oid, err := r.WriteBlob([]byte(`{"hello":"world"}`))
	if err != nil {
		t.Fatalf("WriteBlob failed: %v", err)
	}

	refname := domain.Refname("refs/branch-metadata/feature-a")
	if err := r.UpdateRefCAS(refname, oid, domain.ZeroOID, "create"); err != nil {
		t.Fatalf("create CAS failed: %v", err)
	}

	resolved, err := r.ResolveRef(refname)
	if err != nil {
		t.Fatalf("ResolveRef failed: %v", err)
	}
	if resolved != oid {
		t.Errorf("expected %s, got %s", oid, resolved)
	}

	oid2, err := r.WriteBlob([]byte(`{"hello":"there"}`))
	if err != nil {
		t.Fatalf("WriteBlob failed: %v", err)
	}

	if err := r.UpdateRefCAS(refname, oid2, domain.ZeroOID, "create again"); err == nil {
		t.Fatal("expected stale create to fail CAS")
	}

	if err := r.UpdateRefCAS(refname, oid2, oid, "update"); err != nil {
		t.Fatalf("update CAS failed: %v", err)
	}

	if err := r.DeleteRefCAS(refname, oid); err == nil {
		t.Fatal("expected stale delete to fail CAS")
	}
	if err := r.DeleteRefCAS(refname, oid2); err != nil {
		t.Fatalf("delete CAS failed: %v", err)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	dir := initRepo(t)
	r, err := Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	oid, err := r.WriteBlob([]byte("stacked branches"))
	if err != nil {
		t.Fatalf("WriteBlob failed: %v", err)
	}
	got, err := r.ReadBlobAsString(oid)
	if err != nil {
		t.Fatalf("ReadBlobAsString failed: %v", err)
	}
	if got != "stacked branches" {
		t.Errorf("expected %q, got %q", "stacked branches", got)
	}
}

func TestMergeBaseAndAncestry(t *testing.T) {
	dir := initRepo(t)
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	r, err := Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	run("checkout", "-q", "-b", "feature")
	if err := os.WriteFile(filepath.Join(dir, "feature.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "feature.txt")
	run("commit", "-q", "-m", "feature commit")

	revParse := func(ref string) domain.ObjectID {
		out, err := exec.Command("git", "-C", dir, "rev-parse", ref).Output()
		if err != nil {
			t.Fatalf("rev-parse %s: %v", ref, err)
		}
		return domain.ObjectID(trimNewline(string(out)))
	}

	main := revParse("main")
	feature := revParse("feature")

	isAncestor, err := r.IsAncestor(main, feature)
	if err != nil {
		t.Fatalf("IsAncestor failed: %v", err)
	}
	if !isAncestor {
		t.Error("expected main to be an ancestor of feature")
	}

	base, ok, err := r.MergeBase(main, feature)
	if err != nil {
		t.Fatalf("MergeBase failed: %v", err)
	}
	if !ok || base != main {
		t.Errorf("expected merge base %s, got %s (ok=%v)", main, base, ok)
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func TestState_Clean(t *testing.T) {
	dir := initRepo(t)
	r, err := Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	state, err := r.State()
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state.Kind != StateClean {
		t.Errorf("expected clean state, got %v", state.Kind)
	}
}

func TestWorktreeStatus_DirtyAfterUnstagedEdit(t *testing.T) {
	dir := initRepo(t)
	r, err := Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	status, err := r.WorktreeStatusFor()
	if err != nil {
		t.Fatalf("WorktreeStatusFor failed: %v", err)
	}
	if status.Kind != WorktreeDirty || !status.Unstaged {
		t.Errorf("expected dirty/unstaged status, got %+v", status)
	}
}

func TestListWorktrees(t *testing.T) {
	dir := initRepo(t)
	r, err := Open(dir, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	entries, err := r.ListWorktrees(context.Background())
	if err != nil {
		t.Fatalf("ListWorktrees failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 worktree, got %d", len(entries))
	}
	if entries[0].Path != dir {
		t.Errorf("expected path %s, got %s", dir, entries[0].Path)
	}
}

func TestParseHostRemote(t *testing.T) {
	cases := []struct {
		url   string
		host  string
		owner string
		repo  string
	}{
		{"git@github.com:acme/widgets.git", "github.com", "acme", "widgets"},
		{"https://github.com/acme/widgets.git", "github.com", "acme", "widgets"},
		{"https://github.com/acme/widgets", "github.com", "acme", "widgets"},
	}
	for _, c := range cases {
		got, err := ParseHostRemote(c.url)
		if err != nil {
			t.Fatalf("ParseHostRemote(%q) failed: %v", c.url, err)
		}
		if got.Host != c.host || got.Owner != c.owner || got.Repo != c.repo {
			t.Errorf("ParseHostRemote(%q) = %+v, want host=%s owner=%s repo=%s", c.url, got, c.host, c.owner, c.repo)
		}
	}
}

func TestParseHostRemote_Invalid(t *testing.T) {
	if _, err := ParseHostRemote("not a url at all : : :"); err == nil {
		t.Error("expected error for unparseable remote URL")
	}
}
