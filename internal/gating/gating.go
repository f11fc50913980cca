// Package gating evaluates a command's declared capability requirements
// against a scanner.RepoSnapshot and either admits the command with a
// validated scope, or refuses with a structured RepairBundle. Gating
// itself is pure: it reads the snapshot and returns a decision, never
// touching the repository.
package gating

import (
	"github.com/lcgerke/lattice/internal/domain"
	"github.com/lcgerke/lattice/internal/scanner"
)

// ScopeKind tags which validated_data variant a ReadyContext carries.
type ScopeKind string

const (
	ScopeNone   ScopeKind = "none"
	ScopeStack  ScopeKind = "stack"
	ScopeBranch ScopeKind = "branch"
)

// ScopeHint is what a command declares it needs resolved, before gating
// knows whether the snapshot can actually resolve it.
type ScopeHint string

const (
	ScopeHintNone   ScopeHint = "none"
	ScopeHintBranch ScopeHint = "single-branch"
	ScopeHintStack  ScopeHint = "stack-scoped"
)

// StackScope is the resolved scope for a stack-scoped command: the trunk
// plus every tracked branch in bottom-up topological order.
type StackScope struct {
	Trunk    domain.BranchName
	Branches []domain.BranchName
}

// BranchScope is the resolved scope for a single-branch command.
type BranchScope struct {
	Branch domain.BranchName
}

// ReadyContext is returned when every declared capability is present and
// the command's scope has been resolved against the snapshot.
type ReadyContext struct {
	Snapshot   *scanner.RepoSnapshot
	ScopeKind  ScopeKind
	Stack      StackScope
	Branch     BranchScope
}

// RepairBundle is the structured refusal returned when capabilities are
// missing: not an error, a value gating callers route to the doctor.
type RepairBundle struct {
	Command             string
	MissingCapabilities  []string
	BlockingIssues       []scanner.Issue
}

// RequirementSet is a command's unordered declaration of which
// capabilities it needs and what scope it expects gating to resolve.
type RequirementSet struct {
	Name         string
	Capabilities []string
	Scope        ScopeHint
}

var (
	// ReadOnly commands need nothing beyond a readable repository.
	ReadOnly = RequirementSet{
		Name:         "ReadOnly",
		Capabilities: []string{"RepoOpen", "TrunkKnown", "MetadataReadable"},
		Scope:        ScopeHintNone,
	}
	// Navigation commands additionally need a known working tree.
	Navigation = RequirementSet{
		Name:         "Navigation",
		Capabilities: []string{"RepoOpen", "TrunkKnown", "MetadataReadable", "GraphValid", "WorkingDirectoryAvailable", "WorktreeStatusKnown"},
		Scope:        ScopeHintBranch,
	}
	// Mutating commands need a clean, lockable, structurally valid
	// repository with an available working tree.
	Mutating = RequirementSet{
		Name: "Mutating",
		Capabilities: []string{
			"RepoOpen", "TrunkKnown", "NoLatticeOpInProgress", "NoExternalGitOpInProgress",
			"MetadataReadable", "GraphValid", "WorkingDirectoryAvailable", "WorktreeStatusKnown",
			"FrozenPolicySatisfied",
		},
		Scope: ScopeHintBranch,
	}
	// MutatingMetadataOnly works in a bare repository: no working tree
	// requirement, since no rebase/checkout/commit step is planned.
	MutatingMetadataOnly = RequirementSet{
		Name: "MutatingMetadataOnly",
		Capabilities: []string{
			"RepoOpen", "TrunkKnown", "NoLatticeOpInProgress", "NoExternalGitOpInProgress",
			"MetadataReadable", "GraphValid", "FrozenPolicySatisfied",
		},
		Scope: ScopeHintBranch,
	}
	// Remote commands additionally need resolved, authorized, authenticated
	// access to the configured forge.
	Remote = RequirementSet{
		Name: "Remote",
		Capabilities: []string{
			"RepoOpen", "TrunkKnown", "NoLatticeOpInProgress", "MetadataReadable", "GraphValid",
			"WorkingDirectoryAvailable", "WorktreeStatusKnown", "AuthAvailable", "RemoteResolved", "RepoAuthorized",
		},
		Scope: ScopeHintBranch,
	}
	// RemoteBareAllowed is Remote without the working-tree requirement.
	RemoteBareAllowed = RequirementSet{
		Name:         "RemoteBareAllowed",
		Capabilities: []string{"RepoOpen", "TrunkKnown", "NoLatticeOpInProgress", "MetadataReadable", "GraphValid", "AuthAvailable", "RemoteResolved", "RepoAuthorized"},
		Scope:        ScopeHintBranch,
	}
	// Recovery is deliberately minimal: continue/abort must work even when
	// most capabilities are absent, since they exist to resolve exactly
	// that situation.
	Recovery = RequirementSet{
		Name:         "Recovery",
		Capabilities: []string{"RepoOpen", "WorkingDirectoryAvailable"},
		Scope:        ScopeHintNone,
	}
)

// Gate evaluates req against snap and either resolves scope, or returns a
// RepairBundle. branch is the command's target, used for single-branch
// resolution; stack scope does not read it.
func Gate(command string, req RequirementSet, snap *scanner.RepoSnapshot, branch domain.BranchName) (*ReadyContext, *RepairBundle, error) {
	missing := snap.Capabilities.Missing(req.Capabilities)
	if len(missing) > 0 {
		var blocking []scanner.Issue
		for _, m := range missing {
			blocking = append(blocking, relatedIssues(snap, m)...)
		}
		return nil, &RepairBundle{Command: command, MissingCapabilities: missing, BlockingIssues: blocking}, nil
	}

	ctx := &ReadyContext{Snapshot: snap}
	switch req.Scope {
	case ScopeHintNone:
		ctx.ScopeKind = ScopeNone
	case ScopeHintBranch:
		ctx.ScopeKind = ScopeBranch
		ctx.Branch = BranchScope{Branch: branch}
	case ScopeHintStack:
		ctx.ScopeKind = ScopeStack
		branches := snap.Graph.TopologicalOrder(snap.TrackedBranches())
		ctx.Stack = StackScope{Trunk: snap.Trunk, Branches: branches}
	}
	return ctx, nil, nil
}

// relatedIssues returns every snapshot issue plausibly explaining why
// capability is absent (best-effort; the scanner is not required to tag
// issues with the exact capability name they break).
func relatedIssues(snap *scanner.RepoSnapshot, capability string) []scanner.Issue {
	var out []scanner.Issue
	for _, issue := range snap.Issues {
		if issueExplains(issue.ID, capability) {
			out = append(out, issue)
		}
	}
	return out
}

func issueExplains(id scanner.IssueID, capability string) bool {
	switch capability {
	case "TrunkKnown":
		return id == scanner.IssueTrunkUnknown
	case "NoLatticeOpInProgress":
		return id == scanner.IssueLatticeOpInProgress
	case "NoExternalGitOpInProgress":
		return id == scanner.IssueExternalGitOp
	case "MetadataReadable":
		return id == scanner.IssueMetadataUnparseable || id == scanner.IssueUnknownSchemaVersion
	case "GraphValid":
		return id == scanner.IssueCycleDetected || id == scanner.IssueParentMissing
	case "WorktreeStatusKnown":
		return id == scanner.IssueWorkingTreeUnknown
	case "AuthAvailable":
		return id == scanner.IssueAuthUnavailable
	case "RemoteResolved":
		return id == scanner.IssueRemoteUnresolved
	case "RepoAuthorized":
		return id == scanner.IssueRepoUnauthorized
	case "FrozenPolicySatisfied":
		return id == scanner.IssueFrozenPolicyViolation
	default:
		return false
	}
}
