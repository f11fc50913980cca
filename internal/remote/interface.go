// Package remote provides platform-agnostic interfaces for interacting with
// remote Git hosting services (GitHub, GitLab, Bitbucket, etc.).
package remote

// Platform defines the interface that all remote Git hosting platforms must implement.
// This abstraction allows lattice to work with multiple platforms (GitHub, GitLab, etc.)
// using a common interface.
type Platform interface {
	// Branch operations
	SetDefaultBranch(branch string) error
	GetDefaultBranch() (string, error)

	// Protection checks
	IsBranchProtected(branch string) (bool, error)
	GetBranchProtection(branch string) (*ProtectionRules, error)

	// Permission checks
	CanPush() (bool, error)
	CanAdmin() (bool, error)

	// Repository info
	GetOwner() string
	GetRepo() string
	GetPlatform() string // "github", "gitlab", "bitbucket"

	// Pull request operations, exercised by the submit command once a
	// branch's stack is pushed.
	CreatePullRequest(title, head, base, body string, draft bool) (*PullRequest, error)
	UpdatePullRequest(number int, title, base, body string) (*PullRequest, error)
	GetPullRequestForBranch(branch string) (*PullRequest, error)
}

// PullRequest is a platform-agnostic view of a pull/merge request.
type PullRequest struct {
	Number int
	URL    string
	Draft  bool
	State  string
}

// ProtectionRules represents branch protection settings across different platforms.
type ProtectionRules struct {
	Enabled             bool
	RequireReviews      bool
	RequireStatusChecks bool
	EnforceAdmins       bool
	AllowForcePush      bool
}
