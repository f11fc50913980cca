package scanner

import (
	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/gitrepo"
)

// RepoSnapshot is the scanner's sole output: a read-only picture of the
// repository and its tracked metadata at a point in time.
type RepoSnapshot struct {
	Trunk          domain.BranchName
	CurrentBranch  domain.BranchName
	HasCurrent     bool
	GitState       gitrepo.GitState
	Worktree       gitrepo.WorktreeStatus
	BranchTips     map[domain.BranchName]domain.ObjectID
	Metadata       map[domain.BranchName]*domain.BranchMetadata
	MetadataRefOids map[domain.BranchName]domain.ObjectID
	Graph          *Graph
	Capabilities   Capabilities
	Issues         []Issue
	Fingerprint    string
	Divergence     *DivergenceInfo
}

// IssuesFor returns every issue recorded against branch.
func (s *RepoSnapshot) IssuesFor(branch domain.BranchName) []Issue {
	var out []Issue
	for _, issue := range s.Issues {
		if issue.Branch == branch {
			out = append(out, issue)
		}
	}
	return out
}

// TrackedBranches returns every branch with a parsed metadata record.
func (s *RepoSnapshot) TrackedBranches() []domain.BranchName {
	out := make([]domain.BranchName, 0, len(s.Metadata))
	for b := range s.Metadata {
		out = append(out, b)
	}
	return out
}
