package gitrepo

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GitStateKind enumerates the Git-internal operations that can be in
// progress on a working tree.
type GitStateKind string

const (
	StateClean        GitStateKind = "clean"
	StateRebase        GitStateKind = "rebase"
	StateMerge         GitStateKind = "merge"
	StateCherryPick    GitStateKind = "cherry_pick"
	StateRevert        GitStateKind = "revert"
	StateBisect        GitStateKind = "bisect"
	StateApplyMailbox  GitStateKind = "apply_mailbox"
)

// GitState reports which (if any) Git-internal operation is in progress.
// Rebase additionally reports progress through the todo list.
type GitState struct {
	Kind    GitStateKind
	Current int
	Total   int
}

// State detects the repository's current Git-internal operation state by
// reading the structured markers Git itself maintains (rebase-merge/
// rebase-apply directories, MERGE_HEAD, CHERRY_PICK_HEAD, REVERT_HEAD,
// BISECT_LOG) rather than hand-parsing arbitrary files: these markers are
// Git's own public contract for "an operation is in progress", stable
// across normal repositories, bare repositories, and linked worktrees
// because each worktree has its own private git-dir for exactly this state.
func (r *Repo) State() (GitState, error) {
	gitDir := r.gitDir

	if rebaseDir := filepath.Join(gitDir, "rebase-merge"); dirExists(rebaseDir) {
		current, total := rebaseProgress(rebaseDir)
		return GitState{Kind: StateRebase, Current: current, Total: total}, nil
	}
	if rebaseDir := filepath.Join(gitDir, "rebase-apply"); dirExists(rebaseDir) {
		if fileExists(filepath.Join(rebaseDir, "rebasing")) {
			current, total := rebaseProgress(rebaseDir)
			return GitState{Kind: StateRebase, Current: current, Total: total}, nil
		}
		return GitState{Kind: StateApplyMailbox}, nil
	}
	if fileExists(filepath.Join(gitDir, "MERGE_HEAD")) {
		return GitState{Kind: StateMerge}, nil
	}
	if fileExists(filepath.Join(gitDir, "CHERRY_PICK_HEAD")) {
		return GitState{Kind: StateCherryPick}, nil
	}
	if fileExists(filepath.Join(gitDir, "REVERT_HEAD")) {
		return GitState{Kind: StateRevert}, nil
	}
	if fileExists(filepath.Join(gitDir, "BISECT_LOG")) {
		return GitState{Kind: StateBisect}, nil
	}
	return GitState{Kind: StateClean}, nil
}

func rebaseProgress(rebaseDir string) (current, total int) {
	current = readIntFile(filepath.Join(rebaseDir, "msgnum"))
	total = readIntFile(filepath.Join(rebaseDir, "end"))
	return
}

func readIntFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return n
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
