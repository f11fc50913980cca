package gitrepo

import (
	"context"
	"strings"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// RunGit runs an arbitrary git subcommand in the worktree, returning
// trimmed stdout. Used by the executor to apply a planner RunGit step
// whose args were already compiled by the planning pattern that emitted
// it (e.g. rebase --onto, branch -m).
func (r *Repo) RunGit(ctx context.Context, args ...string) (string, error) {
	return r.cli.run(ctx, args...)
}

// RebaseOnto runs `git rebase --onto newBase oldBase branch`, the porcelain
// primitive every restack step in the planner compiles down to. It is the
// one git operation lattice cannot express through go-git plumbing: a
// rebase walks the todo list, replays commits, and can pause mid-way on
// conflicts, none of which go-git models.
func (r *Repo) RebaseOnto(ctx context.Context, newBase, oldBase domain.ObjectID, branch domain.BranchName) error {
	_, err := r.cli.run(ctx, "rebase", "--onto", string(newBase), string(oldBase), string(branch))
	return err
}

// RebaseContinue resumes an in-progress rebase after conflicts have been
// resolved and staged.
func (r *Repo) RebaseContinue(ctx context.Context) error {
	_, err := r.cli.run(ctx, "rebase", "--continue")
	return err
}

// RebaseAbort discards an in-progress rebase, restoring the branch to its
// pre-rebase tip.
func (r *Repo) RebaseAbort(ctx context.Context) error {
	_, err := r.cli.run(ctx, "rebase", "--abort")
	return err
}

// Checkout switches the working tree to branch.
func (r *Repo) Checkout(ctx context.Context, branch domain.BranchName) error {
	_, err := r.cli.run(ctx, "checkout", string(branch))
	return err
}

// CheckoutDetached checks out oid directly, leaving HEAD detached. Used by
// the executor to stage a working tree for a checkpoint without touching
// any branch ref.
func (r *Repo) CheckoutDetached(ctx context.Context, oid domain.ObjectID) error {
	_, err := r.cli.run(ctx, "checkout", "--detach", string(oid))
	return err
}

// CommitOpts configures a porcelain commit.
type CommitOpts struct {
	Message        string
	AllowEmpty     bool
	Amend          bool
}

// Commit creates a new commit on the current branch from the current
// index, returning its oid.
func (r *Repo) Commit(ctx context.Context, opts CommitOpts) (domain.ObjectID, error) {
	args := []string{"commit", "-m", opts.Message}
	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}
	if opts.Amend {
		args = append(args, "--amend")
	}
	if _, err := r.cli.run(ctx, args...); err != nil {
		return "", err
	}
	out, err := r.cli.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return domain.ObjectID(strings.TrimSpace(out)), nil
}

// ConflictedPaths returns the set of paths currently in a conflicted
// (unmerged) state, read via `git diff --name-only --diff-filter=U` so
// that lattice never hand-parses index bits directly.
func (r *Repo) ConflictedPaths(ctx context.Context) ([]string, error) {
	out, err := r.cli.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	return strings.Split(strings.TrimSpace(out), "\n"), nil
}

// Push pushes branch to remote. forceWithLease protects against
// clobbering commits the caller never saw.
func (r *Repo) Push(ctx context.Context, remote string, branch domain.BranchName, forceWithLease bool) error {
	args := []string{"push", remote, string(branch)}
	if forceWithLease {
		args = []string{"push", "--force-with-lease", remote, string(branch)}
	}
	_, err := r.cli.run(ctx, args...)
	return err
}

// FetchRemote fetches updates (including tags) from remote.
func (r *Repo) FetchRemote(ctx context.Context, remote string) error {
	_, err := r.cli.run(ctx, "fetch", remote, "--tags")
	return err
}

// CanReachRemote probes remote reachability without mutating local state.
func (r *Repo) CanReachRemote(ctx context.Context, remote string) bool {
	_, err := r.cli.run(ctx, "ls-remote", "--exit-code", remote, "HEAD")
	return err == nil
}

// ValidateCleanIndex fails with DirtyWorktree if the index or working tree
// has any modification, used as a precondition gate before destructive
// porcelain operations like checkout or rebase.
func (r *Repo) ValidateCleanIndex() error {
	status, err := r.WorktreeStatusFor()
	if err != nil {
		return err
	}
	if status.Kind == WorktreeDirty {
		return latticeerrors.New(latticeerrors.KindDirtyWorktree, "working tree has uncommitted changes")
	}
	return nil
}
