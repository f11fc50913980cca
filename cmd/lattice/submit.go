package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/executor"
	"github.com/lcgerke/lattice/internal/gating"
	"github.com/lcgerke/lattice/internal/lifecycle"
	"github.com/lcgerke/lattice/internal/planner"
	"github.com/lcgerke/lattice/internal/remote"
)

var (
	submitDraft bool
	submitTitle string
	submitBody  string
)

var submitCmd = &cobra.Command{
	Use:   "submit <branch>",
	Short: "Push a branch and open or update its pull request",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().BoolVar(&submitDraft, "draft", false, "open the pull request as a draft")
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "pull request title (defaults to the branch name)")
	submitCmd.Flags().StringVar(&submitBody, "body", "", "pull request body")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	a, err := openApp(".", false)
	if err != nil {
		return err
	}
	branch := domain.BranchName(args[0])

	result, err := lifecycle.Run(context.Background(), a.deps(), "submit", gating.Remote, branch,
		func(opID string, ctx *gating.ReadyContext, at time.Time) (*planner.Plan, error) {
			return planner.PlanSubmit(opID, ctx.Snapshot, branch, a.cfg.Remote)
		}, time.Now())
	if err != nil {
		return err
	}
	if result.Repair != nil {
		a.reportRepair("submit", result.Repair)
		return nil
	}
	if result.Outcome.Kind != executor.OutcomeSuccess {
		reportOutcome(a, result.Outcome)
		return nil
	}

	meta, ok := result.Snapshot.Metadata[branch]
	if !ok {
		return fmt.Errorf("branch %q is no longer tracked after push", branch)
	}

	remoteURL, err := a.repo.RemoteURL(a.cfg.Remote)
	if err != nil {
		return err
	}
	platform, err := remote.NewClient(remoteURL)
	if err != nil {
		return err
	}

	title := submitTitle
	if title == "" {
		title = string(branch)
	}

	if meta.PR != nil {
		pr, err := platform.UpdatePullRequest(meta.PR.Number, title, string(meta.Parent), submitBody)
		if err != nil {
			return err
		}
		a.out.Success(fmt.Sprintf("updated pull request #%d: %s", pr.Number, pr.URL))
		return nil
	}

	pr, err := platform.CreatePullRequest(title, string(branch), string(meta.Parent), submitBody, submitDraft)
	if err != nil {
		return err
	}
	a.out.Success(fmt.Sprintf("opened pull request #%d: %s", pr.Number, pr.URL))
	return recordPRLink(a, branch, pr)
}

// recordPRLink writes the newly opened PR's link onto the branch's
// metadata. It is a best-effort follow-up write outside the lifecycle
// runner: the push already succeeded, and a lost PR link is recoverable
// on the next submit (the forge still has the PR; only the local
// shortcut to it is missing).
func recordPRLink(a *app, branch domain.BranchName, pr *remote.PullRequest) error {
	rec, ok, err := a.metaStore.Read(branch)
	if err != nil || !ok {
		return err
	}
	updated := *rec.Metadata
	updated.PR = &domain.PRLink{Number: pr.Number, URL: pr.URL, Draft: pr.Draft, State: domain.PRStateOpen}
	_, err = a.metaStore.WriteCAS(branch, rec.RefOid, &updated)
	return err
}
