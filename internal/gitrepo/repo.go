// Package gitrepo is the single doorway to the repository: every other
// lattice component reaches Git exclusively through the Repo type defined
// here. No other package parses Git's on-disk state directly, and the only
// other package that invokes the git binary is internal/remote/github,
// whose token lookup runs `git config --global github.token` itself.
//
// Ref resolution, CAS, blob I/O, merge-base and ancestry queries run
// directly against go-git's plumbing (go-git/v5), which models refs and
// objects as first-class values and gives CAS a real compare-and-swap
// primitive (storer.ReferenceStorer.CheckAndSetReference). Porcelain
// operations — rebase, commit, checkout, and conflict-state detection — are
// shelled out to the git binary instead, because go-git's own porcelain is
// known to fall short of real workflows (its RemoteConfig cannot even
// express a dual push-url remote).
package gitrepo

import (
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	gogitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/storage/filesystem"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// RepoContext tags what kind of repository was opened.
type RepoContext string

const (
	ContextNormal    RepoContext = "normal"
	ContextBare      RepoContext = "bare"
	ContextWorktree  RepoContext = "worktree"
)

// Repo is the opened handle every lattice component operates through.
type Repo struct {
	gitDir    string
	commonDir string
	workDir   string // empty for bare repositories
	context   RepoContext

	repo *git.Repository
	cli  *cliRunner
}

// GitDir returns the repository's .git directory (or the bare repo root).
func (r *Repo) GitDir() string { return r.gitDir }

// CommonDir returns the shared directory (equal to GitDir except inside a
// linked worktree, where it points back at the main repository's .git).
func (r *Repo) CommonDir() string { return r.commonDir }

// WorkDir returns the working tree root, or "" for a bare repository.
func (r *Repo) WorkDir() string { return r.workDir }

// Context reports whether the opened repository is normal, bare, or a
// linked worktree.
func (r *Repo) Context() RepoContext { return r.context }

// Open discovers a repository starting from path. allowBare controls
// whether a bare repository is accepted or rejected with BareRepo.
func Open(path string, allowBare bool) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, latticeerrors.Wrap(latticeerrors.KindAccessError, "could not resolve repository path", err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, latticeerrors.Wrap(latticeerrors.KindNotARepo, "not a git repository", err)
	}

	var gitDir string
	if fsStorer, ok := repo.Storer.(*filesystem.Storage); ok {
		gitDir = fsStorer.Filesystem().Root()
	} else {
		gitDir = abs
	}

	isBare := true
	wt, wtErr := repo.Worktree()
	var workDir string
	if wtErr == nil && wt != nil {
		isBare = false
		workDir = wt.Filesystem.Root()
	}

	if isBare && !allowBare {
		return nil, latticeerrors.New(latticeerrors.KindBareRepo, "operation requires a working tree")
	}

	ctxTag := ContextNormal
	if isBare {
		ctxTag = ContextBare
	} else if isLinkedWorktree(gitDir) {
		ctxTag = ContextWorktree
	}

	commonDir := resolveCommonDir(gitDir)

	cliWd := workDir
	if cliWd == "" {
		cliWd = gitDir
	}

	return &Repo{
		gitDir:    gitDir,
		commonDir: commonDir,
		workDir:   workDir,
		context:   ctxTag,
		repo:      repo,
		cli:       newCliRunner(cliWd),
	}, nil
}

// isLinkedWorktree reports whether gitDir looks like
// <common>/worktrees/<name>, go-git/git's on-disk convention for a linked
// worktree's private git-dir.
func isLinkedWorktree(gitDir string) bool {
	info, err := os.Stat(filepath.Join(gitDir, "gitdir"))
	if err != nil {
		return false
	}
	return !info.IsDir() && filepath.Base(filepath.Dir(gitDir)) == "worktrees"
}

func resolveCommonDir(gitDir string) string {
	commonFile := filepath.Join(gitDir, "commondir")
	data, err := os.ReadFile(commonFile)
	if err != nil {
		return gitDir
	}
	rel := string(bytesTrimSpace(data))
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Clean(filepath.Join(gitDir, rel))
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpaceByte(b[start]) {
		start++
	}
	for end > start && isSpaceByte(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpaceByte(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// rawConfig returns the repository's parsed git config, used by the remote
// helpers.
func (r *Repo) rawConfig() (*gogitconfig.Config, error) {
	cfg, err := r.repo.Config()
	if err != nil {
		return nil, latticeerrors.Wrap(latticeerrors.KindGitInternal, "could not read git config", err)
	}
	return cfg, nil
}
