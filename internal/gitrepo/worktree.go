package gitrepo

import (
	"context"
	"strings"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// WorktreeStatusKind classifies a working tree's cleanliness.
type WorktreeStatusKind string

const (
	WorktreeClean       WorktreeStatusKind = "clean"
	WorktreeDirty       WorktreeStatusKind = "dirty"
	WorktreeUnavailable WorktreeStatusKind = "unavailable"
)

// WorktreeStatus reports whether the current working tree has staged,
// unstaged or conflicted changes, or could not be inspected at all (bare
// repository, or the tree is missing on disk).
type WorktreeStatus struct {
	Kind       WorktreeStatusKind
	Staged     bool
	Unstaged   bool
	Conflicts  bool
	Reason     string // set only when Kind == WorktreeUnavailable
}

// WorktreeStatusFor reports the cleanliness of this Repo's own working
// tree, via go-git's porcelain status rather than hand-parsing `git
// status` output.
func (r *Repo) WorktreeStatusFor() (WorktreeStatus, error) {
	if r.workDir == "" {
		return WorktreeStatus{Kind: WorktreeUnavailable, Reason: "bare repository has no working tree"}, nil
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return WorktreeStatus{Kind: WorktreeUnavailable, Reason: err.Error()}, nil
	}
	status, err := wt.Status()
	if err != nil {
		return WorktreeStatus{}, latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to read worktree status", err)
	}

	out := WorktreeStatus{Kind: WorktreeClean}
	for _, fileStatus := range status {
		if fileStatus.Staging == 'U' || fileStatus.Worktree == 'U' {
			out.Conflicts = true
		}
		if fileStatus.Staging != ' ' && fileStatus.Staging != '?' {
			out.Staged = true
		}
		if fileStatus.Worktree != ' ' {
			out.Unstaged = true
		}
	}
	if out.Staged || out.Unstaged || out.Conflicts {
		out.Kind = WorktreeDirty
	}
	return out, nil
}

// WorktreeEntry is one row of `git worktree list`.
type WorktreeEntry struct {
	Path   string
	Head   domain.ObjectID
	Branch domain.BranchName // empty when detached
	Bare   bool
}

// ListWorktrees enumerates every worktree linked to this repository by
// shelling out to `git worktree list --porcelain`: go-git has no API for
// discovering sibling worktrees, since that bookkeeping lives in the
// common git-dir's worktrees/ directory rather than in any ref or object
// go-git models.
func (r *Repo) ListWorktrees(ctx context.Context) ([]WorktreeEntry, error) {
	out, err := r.cli.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}

	var entries []WorktreeEntry
	var cur *WorktreeEntry
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			if cur != nil {
				entries = append(entries, *cur)
			}
			cur = &WorktreeEntry{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "HEAD "):
			if cur != nil {
				cur.Head = domain.ObjectID(strings.TrimPrefix(line, "HEAD "))
			}
		case strings.HasPrefix(line, "branch "):
			if cur != nil {
				ref := strings.TrimPrefix(line, "branch ")
				name := strings.TrimPrefix(ref, domain.HeadsPrefix)
				if branch, err := domain.ValidateBranchName(name); err == nil {
					cur.Branch = branch
				}
			}
		case line == "bare":
			if cur != nil {
				cur.Bare = true
			}
		}
	}
	if cur != nil {
		entries = append(entries, *cur)
	}
	return entries, nil
}

// BranchCheckedOutWorktree returns the path of the worktree (if any) that
// currently has branch checked out, other than this Repo's own working
// tree.
func (r *Repo) BranchCheckedOutWorktree(ctx context.Context, branch domain.BranchName) (string, bool, error) {
	entries, err := r.ListWorktrees(ctx)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.Branch == branch && e.Path != r.workDir {
			return e.Path, true, nil
		}
	}
	return "", false, nil
}
