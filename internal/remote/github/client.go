package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v58/github"
	"golang.org/x/oauth2"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// Client adapts the GitHub REST API to the Platform interface submit and
// doctor drive; one Client is scoped to a single owner/repo pair.
type Client struct {
	client *github.Client
	owner  string
	repo   string
	ctx    context.Context
}

// ProtectionRules mirrors remote.ProtectionRules locally so this package
// never imports the parent remote package (which imports it back to build
// the Platform wrapper).
type ProtectionRules struct {
	Enabled             bool
	RequireReviews      bool
	RequireStatusChecks bool
	EnforceAdmins       bool
	AllowForcePush      bool
}

// NewClient builds a Client for the GitHub repository remoteURL points at.
// Accepts both https://github.com/owner/repo.git and
// git@github.com:owner/repo.git forms.
func NewClient(remoteURL string) (*Client, error) {
	owner, repo, err := parseGitHubURL(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub URL: %w", err)
	}

	token, err := getGitHubToken()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
		ctx:    ctx,
	}, nil
}

// NewClientWithTimeout creates a client with custom timeout
// Returns client and a cancel function that must be called when done
func NewClientWithTimeout(remoteURL string, timeout time.Duration) (*Client, context.CancelFunc, error) {
	client, err := NewClient(remoteURL)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	client.ctx = ctx

	return client, cancel, nil
}

// parseGitHubURL extracts owner and repo from various GitHub URL formats
func parseGitHubURL(remoteURL string) (owner, repo string, err error) {
	// Handle SSH URLs: git@github.com:owner/repo.git
	if strings.HasPrefix(remoteURL, "git@github.com:") {
		parts := strings.TrimPrefix(remoteURL, "git@github.com:")
		parts = strings.TrimSuffix(parts, ".git")

		split := strings.Split(parts, "/")
		if len(split) != 2 {
			return "", "", fmt.Errorf("invalid SSH URL format")
		}
		return split[0], split[1], nil
	}

	// Handle HTTPS URLs: https://github.com/owner/repo.git
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", "", err
	}

	if u.Host != "github.com" {
		return "", "", fmt.Errorf("not a GitHub URL: %s", u.Host)
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GitHub path: %s", path)
	}

	return parts[0], parts[1], nil
}

// GetOwner returns the repository owner
func (c *Client) GetOwner() string {
	return c.owner
}

// GetRepo returns the repository name
func (c *Client) GetRepo() string {
	return c.repo
}

// GetPlatform returns "github"
func (c *Client) GetPlatform() string {
	return "github"
}

// SetDefaultBranch updates the repository's default branch
func (c *Client) SetDefaultBranch(branch string) error {
	_, _, err := c.client.Repositories.Edit(c.ctx, c.owner, c.repo, &github.Repository{
		DefaultBranch: github.String(branch),
	})

	if err != nil {
		return latticeerrors.ForgeRequest("set default branch", err)
	}

	return nil
}

// GetDefaultBranch returns the current default branch
func (c *Client) GetDefaultBranch() (string, error) {
	repo, _, err := c.client.Repositories.Get(c.ctx, c.owner, c.repo)
	if err != nil {
		return "", latticeerrors.ForgeRequest("get repository", err)
	}

	return repo.GetDefaultBranch(), nil
}

// IsBranchProtected checks if a branch has protection rules
func (c *Client) IsBranchProtected(branch string) (bool, error) {
	_, resp, err := c.client.Repositories.GetBranchProtection(c.ctx, c.owner, c.repo, branch)

	if err != nil {
		// 404 means no protection
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, latticeerrors.ForgeRequest("check branch protection", err)
	}

	return true, nil
}

// GetBranchProtection returns detailed protection rules
func (c *Client) GetBranchProtection(branch string) (*ProtectionRules, error) {
	protection, resp, err := c.client.Repositories.GetBranchProtection(c.ctx, c.owner, c.repo, branch)

	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return &ProtectionRules{Enabled: false}, nil
		}
		return nil, latticeerrors.ForgeRequest("get branch protection", err)
	}

	return &ProtectionRules{
		Enabled:             true,
		RequireReviews:      protection.GetRequiredPullRequestReviews() != nil,
		RequireStatusChecks: protection.GetRequiredStatusChecks() != nil,
		EnforceAdmins:       protection.GetEnforceAdmins().Enabled,
		AllowForcePush:      protection.GetAllowForcePushes().Enabled,
	}, nil
}

// CanPush checks if authenticated user can push to repository
func (c *Client) CanPush() (bool, error) {
	perms, err := c.CheckPermissions()
	if err != nil {
		return false, err
	}
	return perms.Push, nil
}

// CanAdmin checks if authenticated user has admin access
func (c *Client) CanAdmin() (bool, error) {
	perms, err := c.CheckPermissions()
	if err != nil {
		return false, err
	}
	return perms.Admin, nil
}

// PullRequest is a platform-agnostic view of a pull/merge request, local to
// avoid forcing go-github types onto Platform callers.
type PullRequest struct {
	Number int
	URL    string
	Draft  bool
	State  string
}

// CreatePullRequest opens a pull request from head onto base.
func (c *Client) CreatePullRequest(title, head, base, body string, draft bool) (*PullRequest, error) {
	pr, _, err := c.client.PullRequests.Create(c.ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
		Draft: github.Bool(draft),
	})
	if err != nil {
		return nil, latticeerrors.ForgeRequest("create pull request", err)
	}
	return toPullRequest(pr), nil
}

// UpdatePullRequest edits an existing pull request's base, title, or body.
// Pass an empty string for any field that should be left unchanged.
func (c *Client) UpdatePullRequest(number int, title, base, body string) (*PullRequest, error) {
	update := &github.PullRequest{}
	if title != "" {
		update.Title = github.String(title)
	}
	if base != "" {
		update.Base = &github.PullRequestBranch{Ref: github.String(base)}
	}
	if body != "" {
		update.Body = github.String(body)
	}
	pr, _, err := c.client.PullRequests.Edit(c.ctx, c.owner, c.repo, number, update)
	if err != nil {
		return nil, latticeerrors.ForgeRequest("update pull request", err)
	}
	return toPullRequest(pr), nil
}

// GetPullRequestForBranch returns the open pull request whose head is
// branch, or nil if none exists.
func (c *Client) GetPullRequestForBranch(branch string) (*PullRequest, error) {
	prs, _, err := c.client.PullRequests.List(c.ctx, c.owner, c.repo, &github.PullRequestListOptions{
		Head:  fmt.Sprintf("%s:%s", c.owner, branch),
		State: "open",
	})
	if err != nil {
		return nil, latticeerrors.ForgeRequest("list pull requests", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return toPullRequest(prs[0]), nil
}

func toPullRequest(pr *github.PullRequest) *PullRequest {
	return &PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Draft:  pr.GetDraft(),
		State:  pr.GetState(),
	}
}
