// Package errors defines the error taxonomy shared by every lattice
// component. All components normalize failures into a LatticeError rather
// than returning raw errors from git, the filesystem, or a forge client.
package errors

import "fmt"

// Kind categorizes a LatticeError for callers that need to branch on it
// (the gating layer, tests).
type Kind string

const (
	// Repository errors
	KindNotARepo           Kind = "not_a_repo"
	KindBareRepo           Kind = "bare_repo"
	KindDirtyWorktree      Kind = "dirty_worktree"
	KindOperationInProgress Kind = "operation_in_progress"

	// Ref/object errors
	KindRefNotFound    Kind = "ref_not_found"
	KindObjectNotFound Kind = "object_not_found"
	KindInvalidOid     Kind = "invalid_oid"
	KindInvalidRefName Kind = "invalid_ref_name"
	KindInvalidUTF8    Kind = "invalid_utf8"

	// Concurrency errors
	KindCasFailed                  Kind = "cas_failed"
	KindAnotherOperationInProgress Kind = "another_operation_in_progress"
	KindWrongOriginWorktree        Kind = "wrong_origin_worktree"

	// Structure errors
	KindCycleDetected              Kind = "cycle_detected"
	KindBranchMissing              Kind = "branch_missing"
	KindBaseNotAncestor            Kind = "base_not_ancestor"
	KindBaseNotReachableFromParent Kind = "base_not_reachable_from_parent"
	KindMetadataUnparseable        Kind = "metadata_unparseable"

	// Policy errors
	KindFrozenBranch              Kind = "frozen_branch"
	KindBranchCheckedOutElsewhere Kind = "branch_checked_out_elsewhere"
	KindMissingCapability          Kind = "missing_capability"

	// Planner errors
	KindInvalidState Kind = "invalid_state"
	KindEmptyScope   Kind = "empty_scope"
	KindParentCycle  Kind = "parent_cycle"

	// Forge errors
	KindAuthUnavailable Kind = "auth_unavailable"
	KindForgeRequest    Kind = "forge_request"

	// Internal
	KindGitInternal Kind = "git_internal"
	KindStorageIO   Kind = "storage_io"
	KindAccessError Kind = "access_error"
)

// LatticeError is the structured error type returned by every component.
// It always carries enough to build a user-visible message: the kind, a
// human sentence, the affected entity (when applicable) and an actionable
// hint.
type LatticeError struct {
	Kind    Kind
	Message string
	Entity  string // branch name, refname, or op id, when applicable
	Hint    string
	FixID   string // doctor fix id, when the hint points at one
	Err     error
}

func (e *LatticeError) Error() string {
	if e.Entity != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s (%s): %v", e.Kind, e.Message, e.Entity, e.Err)
		}
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Entity)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LatticeError) Unwrap() error { return e.Err }

// UserFriendlyMessage renders the error the way a CLI should print it: the
// sentence, then the hint (and fix id) on a new paragraph.
func (e *LatticeError) UserFriendlyMessage() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nSuggestion: " + e.Hint
	}
	if e.FixID != "" {
		msg += fmt.Sprintf("\nRun the suggested fix with: lattice doctor --apply %s", e.FixID)
	}
	return msg
}

// New creates a LatticeError with no wrapped cause.
func New(kind Kind, message string) *LatticeError {
	return &LatticeError{Kind: kind, Message: message}
}

// Wrap creates a LatticeError wrapping an underlying error.
func Wrap(kind Kind, message string, err error) *LatticeError {
	return &LatticeError{Kind: kind, Message: message, Err: err}
}

// WithEntity attaches the affected entity name (branch, ref, op id).
func WithEntity(err *LatticeError, entity string) *LatticeError {
	err.Entity = entity
	return err
}

// WithHint attaches an actionable hint.
func WithHint(err *LatticeError, hint string) *LatticeError {
	err.Hint = hint
	return err
}

// WithFixID attaches the doctor fix id that resolves this error.
func WithFixID(err *LatticeError, fixID string) *LatticeError {
	err.FixID = fixID
	return err
}

// Is reports whether err is a LatticeError of the given kind, unwrapping
// through any wrapper chain.
func Is(err error, kind Kind) bool {
	le := asLatticeError(err)
	return le != nil && le.Kind == kind
}

// As extracts the *LatticeError from an error chain, if present.
func As(err error) (*LatticeError, bool) {
	le := asLatticeError(err)
	return le, le != nil
}

func asLatticeError(err error) *LatticeError {
	for err != nil {
		if le, ok := err.(*LatticeError); ok {
			return le
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

// Common constructors, mirroring the shapes callers need most often.

func CasFailed(refname, expected, actual string) *LatticeError {
	return WithHint(
		New(KindCasFailed, fmt.Sprintf("ref %s changed since it was read (expected %s, found %s)", refname, expected, actual)),
		"Re-scan the repository and re-run the command; an out-of-band change raced this operation.",
	)
}

func AnotherOperationInProgress(opID string) *LatticeError {
	return WithHint(
		WithEntity(New(KindAnotherOperationInProgress, "a lattice operation is already in flight"), opID),
		"Run 'lattice continue' or 'lattice abort' to resolve the in-progress operation first.",
	)
}

func WrongOriginWorktree(origin string) *LatticeError {
	return WithHint(
		New(KindWrongOriginWorktree, "this operation must be resumed from the worktree that started it"),
		fmt.Sprintf("Run 'lattice continue' from %s.", origin),
	)
}

func FrozenBranch(branch, reason string) *LatticeError {
	hint := "Unfreeze the branch with 'lattice unfreeze' before rewriting it."
	if reason != "" {
		hint = fmt.Sprintf("%s (reason: %s)", hint, reason)
	}
	return WithHint(WithEntity(New(KindFrozenBranch, "branch is frozen and cannot be rewritten"), branch), hint)
}

func MetadataUnparseable(branch string, cause error) *LatticeError {
	return WithHint(
		WithEntity(Wrap(KindMetadataUnparseable, "branch metadata could not be parsed", cause), branch),
		"Run 'lattice doctor' to diagnose and repair the metadata record.",
	)
}

// AuthUnavailable builds the error a forge adapter returns when no
// credential could be found for the configured host.
func AuthUnavailable(host string, cause error) *LatticeError {
	return WithHint(
		WithEntity(Wrap(KindAuthUnavailable, "no credential available for this host", cause), host),
		"Set GITHUB_TOKEN (or GH_TOKEN), run 'gh auth login', or set github.token in git config.",
	)
}

// ForgeRequest wraps a failed call to a code-review host's API, tagging it
// with the operation that failed so callers can branch on Kind alone
// rather than string-matching the message.
func ForgeRequest(operation string, cause error) *LatticeError {
	return WithEntity(Wrap(KindForgeRequest, "request to code-review host failed", cause), operation)
}
