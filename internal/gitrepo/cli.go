package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// cliRunner shells out to the git binary for porcelain operations that
// go-git cannot safely drive (interactive rebase, commit, checkout, and
// conflict-state inspection). Every other Git interface method goes
// directly through go-git's plumbing; see repo.go.
//
// A single mutex serializes every invocation to prevent index-lock races
// between concurrent steps of one plan, and the environment is pinned to a
// script-stable locale with terminal prompting disabled.
type cliRunner struct {
	workdir string
	mu      sync.Mutex
}

func newCliRunner(workdir string) *cliRunner {
	return &cliRunner{workdir: workdir}
}

func (c *cliRunner) run(ctx context.Context, args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd := exec.CommandContext(ctx, "git", args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"LC_ALL=C",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return strings.TrimSpace(stdout.String()), latticeerrors.Wrap(
			latticeerrors.KindGitInternal,
			fmt.Sprintf("git %s failed", strings.Join(args, " ")),
			fmt.Errorf("%w\nstderr: %s", err, stderr.String()),
		)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (c *cliRunner) runTimeout(d time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return c.run(ctx, args...)
}

// CheckGitVersion verifies the git binary is installed and reachable on
// PATH, the CLI's up-front check before opening a repository.
func CheckGitVersion() error {
	out, err := exec.Command("git", "--version").Output()
	if err != nil {
		return fmt.Errorf("git is not installed or not in PATH: %w", err)
	}
	if !strings.Contains(string(out), "git version") {
		return fmt.Errorf("unexpected git version output: %s", out)
	}
	return nil
}

// exitCode extracts the process exit code from an error produced by run,
// unwrapping the LatticeError wrapper cli.run adds.
func exitCode(err error) (int, bool) {
	var latErr *latticeerrors.LatticeError
	if le, ok := latticeerrors.As(err); ok {
		latErr = le
	}
	cause := err
	if latErr != nil {
		cause = latErr.Err
	}
	var exitErr *exec.ExitError
	for cause != nil {
		if ee, ok := cause.(*exec.ExitError); ok {
			exitErr = ee
			break
		}
		u, ok := cause.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cause = u.Unwrap()
	}
	if exitErr == nil {
		return 0, false
	}
	return exitErr.ExitCode(), true
}
