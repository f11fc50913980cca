package planner

import (
	"fmt"
	"time"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/scanner"
)

// parentTip resolves the current tip oid of branch's configured parent,
// whether that parent is the trunk or another tracked branch.
func parentTip(snap *scanner.RepoSnapshot, parent domain.BranchName) (domain.ObjectID, error) {
	tip, ok := snap.BranchTips[parent]
	if !ok {
		return domain.ZeroOID, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "parent branch has no local ref"), parent.String())
	}
	return tip, nil
}

// PlanRestack builds the restack pattern: for each branch in
// scope (bottom-up topological order), skip if already based on its
// parent's tip, refuse if frozen, otherwise rebase and record the new base.
func PlanRestack(opID string, snap *scanner.RepoSnapshot, scope []domain.BranchName, now time.Time) (*Plan, error) {
	if len(scope) == 0 {
		return nil, latticeerrors.New(latticeerrors.KindEmptyScope, "restack scope is empty")
	}

	plan := &Plan{OpID: opID, Command: "restack"}
	for _, branch := range scope {
		meta, ok := snap.Metadata[branch]
		if !ok {
			return nil, latticeerrors.WithEntity(
				latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), branch.String())
		}
		if meta.Freeze.Frozen() {
			return nil, latticeerrors.FrozenBranch(branch.String(), meta.Freeze.Reason)
		}
		newParentTip, err := parentTip(snap, meta.Parent)
		if err != nil {
			return nil, err
		}
		if meta.Base == newParentTip {
			continue
		}

		branchRef := domain.HeadsRefname(branch)
		plan.Steps = append(plan.Steps,
			NewStepCheckpoint("restack:"+branch.String()),
			NewStepRunGit(
				fmt.Sprintf("rebase %s onto %s", branch, meta.Parent),
				[]domain.Refname{branchRef},
				"rebase", "--onto", string(newParentTip), string(meta.Base), string(branch),
			),
			NewStepPotentialConflictPause(branch, "rebase"),
		)

		updated := *meta
		updated.Base = newParentTip
		updated.UpdatedAt = now
		plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated))
		plan.TouchedRefs = append(plan.TouchedRefs, branchRef, domain.MetadataRefname(branch))
	}
	return plan, nil
}

// DeleteScope names how far a delete extends from the target branch.
type DeleteScope string

const (
	DeleteSingle    DeleteScope = "single"
	DeleteUpstack   DeleteScope = "upstack"
	DeleteDownstack DeleteScope = "downstack"
)

// computeDeletionSet expands target into the full set of branches to
// delete, per scope.
func computeDeletionSet(g *scanner.Graph, snap *scanner.RepoSnapshot, target domain.BranchName, scope DeleteScope) map[domain.BranchName]bool {
	set := map[domain.BranchName]bool{target: true}
	switch scope {
	case DeleteUpstack:
		var walk func(domain.BranchName)
		walk = func(b domain.BranchName) {
			for _, child := range g.Children[b] {
				if !set[child] {
					set[child] = true
					walk(child)
				}
			}
		}
		walk(target)
	case DeleteDownstack:
		cur := target
		for {
			meta, ok := snap.Metadata[cur]
			if !ok || meta.Parent == g.Trunk {
				break
			}
			if set[meta.Parent] {
				break
			}
			set[meta.Parent] = true
			cur = meta.Parent
		}
	}
	return set
}

// reparentTarget walks up the parent chain from branch until it finds an
// ancestor outside the deletion set (or trunk), which becomes the new
// parent for anything re-parented off the deleted subtree.
func reparentTarget(snap *scanner.RepoSnapshot, g *scanner.Graph, deleted map[domain.BranchName]bool, branch domain.BranchName) domain.BranchName {
	cur := branch
	for {
		meta, ok := snap.Metadata[cur]
		if !ok || meta.Parent == g.Trunk || !deleted[meta.Parent] {
			if !ok {
				return g.Trunk
			}
			return meta.Parent
		}
		cur = meta.Parent
	}
}

// PlanDelete builds the delete pattern: children whose
// parent falls inside the deletion set are re-parented to the nearest
// surviving ancestor, then the deletion set is removed leaves-first.
func PlanDelete(opID string, snap *scanner.RepoSnapshot, target domain.BranchName, scope DeleteScope, now time.Time) (*Plan, error) {
	if _, tracked := snap.Metadata[target]; !tracked {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), target.String())
	}

	deleted := computeDeletionSet(snap.Graph, snap, target, scope)
	plan := &Plan{OpID: opID, Command: "delete"}

	for branch, meta := range snap.Metadata {
		if deleted[branch] {
			continue
		}
		if !deleted[meta.Parent] {
			continue
		}
		newParent := reparentTarget(snap, snap.Graph, deleted, branch)
		updated := *meta
		updated.Parent = newParent
		updated.UpdatedAt = now
		plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated))
		plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(branch))
	}

	ordered := snap.Graph.TopologicalOrder(setToSlice(deleted))
	for i := len(ordered) - 1; i >= 0; i-- {
		branch := ordered[i]
		branchRef := domain.HeadsRefname(branch)
		plan.Steps = append(plan.Steps,
			NewStepDeleteRefCas(branchRef, snap.BranchTips[branch], "removed by stack delete"),
			NewStepDeleteMetadataCas(branch, snap.MetadataRefOids[branch]),
		)
		plan.TouchedRefs = append(plan.TouchedRefs, branchRef, domain.MetadataRefname(branch))
	}
	return plan, nil
}

func setToSlice(set map[domain.BranchName]bool) []domain.BranchName {
	out := make([]domain.BranchName, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	return out
}

// PlanTrack builds the track pattern: record a new metadata
// entry for an existing, untracked branch, with its base set to the merge
// base against the chosen parent.
func PlanTrack(opID string, snap *scanner.RepoSnapshot, branch, parent domain.BranchName, base domain.ObjectID, now time.Time) (*Plan, error) {
	if _, tracked := snap.Metadata[branch]; tracked {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindInvalidState, "branch is already tracked"), branch.String())
	}
	if _, ok := snap.BranchTips[branch]; !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch has no local ref"), branch.String())
	}

	plan := &Plan{OpID: opID, Command: "track"}
	meta := &domain.BranchMetadata{
		Kind:          "branch-metadata",
		SchemaVersion: 1,
		Branch:        branch,
		Parent:        parent,
		Base:          base,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, domain.ZeroOID, meta))
	plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(branch))
	return plan, nil
}

// PlanFreeze builds the freeze pattern: mark scope-affected
// branches frozen with a reason, recording the scope the freeze was
// requested at on every affected branch's own record.
func PlanFreeze(opID string, snap *scanner.RepoSnapshot, target domain.BranchName, scope domain.FreezeScope, reason string, now time.Time) (*Plan, error) {
	meta, ok := snap.Metadata[target]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), target.String())
	}

	affected := freezeScopeMembers(snap, target, scope)
	plan := &Plan{OpID: opID, Command: "freeze"}
	for _, branch := range affected {
		m := snap.Metadata[branch]
		if m == nil {
			m = meta
		}
		updated := *m
		updated.Branch = branch
		updated.Freeze = domain.Freeze{Scope: scope, Reason: reason}
		updated.UpdatedAt = now
		plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated))
		plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(branch))
	}
	return plan, nil
}

// PlanUnfreeze builds the inverse of PlanFreeze: clears the freeze on target
// alone, regardless of the scope it was frozen under.
func PlanUnfreeze(opID string, snap *scanner.RepoSnapshot, target domain.BranchName, now time.Time) (*Plan, error) {
	meta, ok := snap.Metadata[target]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), target.String())
	}
	plan := &Plan{OpID: opID, Command: "unfreeze"}
	updated := *meta
	updated.Freeze = domain.Freeze{}
	updated.UpdatedAt = now
	plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(target, snap.MetadataRefOids[target], &updated))
	plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(target))
	return plan, nil
}

func freezeScopeMembers(snap *scanner.RepoSnapshot, target domain.BranchName, scope domain.FreezeScope) []domain.BranchName {
	switch scope {
	case domain.FreezeUpstack:
		return setToSlice(computeDeletionSet(snap.Graph, snap, target, DeleteUpstack))
	case domain.FreezeDownstack:
		return setToSlice(computeDeletionSet(snap.Graph, snap, target, DeleteDownstack))
	case domain.FreezeStack:
		up := computeDeletionSet(snap.Graph, snap, target, DeleteUpstack)
		down := computeDeletionSet(snap.Graph, snap, target, DeleteDownstack)
		merged := make(map[domain.BranchName]bool, len(up)+len(down))
		for b := range up {
			merged[b] = true
		}
		for b := range down {
			merged[b] = true
		}
		return setToSlice(merged)
	default:
		return []domain.BranchName{target}
	}
}

// PlanSubmit builds the submit pattern: push the
// branch to its configured remote. The forge-side PR create/update is
// performed by the caller after Execute succeeds, since it is not a
// reversible ref-level step and the host/review adapter lives outside the
// executor's CAS model.
func PlanSubmit(opID string, snap *scanner.RepoSnapshot, branch domain.BranchName, remote string) (*Plan, error) {
	meta, ok := snap.Metadata[branch]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), branch.String())
	}
	if meta.Freeze.Frozen() {
		return nil, latticeerrors.FrozenBranch(branch.String(), meta.Freeze.Reason)
	}

	plan := &Plan{OpID: opID, Command: "submit"}
	branchRef := domain.HeadsRefname(branch)
	plan.Steps = append(plan.Steps, NewStepRunGit(
		fmt.Sprintf("push %s to %s", branch, remote),
		[]domain.Refname{branchRef},
		"push", "--force-with-lease", remote, string(branch),
	))
	plan.TouchedRefs = append(plan.TouchedRefs, branchRef)
	return plan, nil
}

// PlanCreate builds the create pattern: allocate a brand-new
// branch ref at startPoint and track it against parent in one step, the
// counterpart to PlanTrack for a branch that doesn't exist yet.
func PlanCreate(opID string, snap *scanner.RepoSnapshot, branch, parent domain.BranchName, startPoint domain.ObjectID, now time.Time) (*Plan, error) {
	if _, exists := snap.BranchTips[branch]; exists {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindInvalidState, "a branch with that name already exists"), branch.String())
	}
	if _, ok := snap.Metadata[parent]; !ok && parent != snap.Graph.Trunk {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "parent branch is not tracked"), parent.String())
	}

	branchRef := domain.HeadsRefname(branch)
	plan := &Plan{OpID: opID, Command: "create"}
	plan.Steps = append(plan.Steps,
		NewStepUpdateRefCas(branchRef, domain.ZeroOID, startPoint, fmt.Sprintf("create %s from %s", branch, parent)),
		NewStepCheckout(branch, "switch to newly created branch"),
	)

	meta := &domain.BranchMetadata{
		Kind:          domain.SchemaKind,
		SchemaVersion: domain.SchemaVersion1,
		Branch:        branch,
		Parent:        parent,
		Base:          startPoint,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, domain.ZeroOID, meta))
	plan.TouchedRefs = append(plan.TouchedRefs, branchRef, domain.MetadataRefname(branch))
	return plan, nil
}

// PlanUntrack builds the untrack pattern: the counterpart to
// PlanDelete that removes only the metadata record, leaving the
// Git branch and its ref fully intact. Children whose parent falls
// inside the untracked set are re-parented to the nearest still-tracked
// ancestor, exactly as PlanDelete does, since their recorded parent would
// otherwise point at a branch with no metadata record to read.
func PlanUntrack(opID string, snap *scanner.RepoSnapshot, target domain.BranchName, scope DeleteScope, now time.Time) (*Plan, error) {
	if _, tracked := snap.Metadata[target]; !tracked {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindInvalidState, "branch is not tracked"), target.String())
	}

	untracked := computeDeletionSet(snap.Graph, snap, target, scope)
	plan := &Plan{OpID: opID, Command: "untrack"}

	for branch, meta := range snap.Metadata {
		if untracked[branch] {
			continue
		}
		if !untracked[meta.Parent] {
			continue
		}
		newParent := reparentTarget(snap, snap.Graph, untracked, branch)
		updated := *meta
		updated.Parent = newParent
		updated.UpdatedAt = now
		plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated))
		plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(branch))
	}

	for branch := range untracked {
		plan.Steps = append(plan.Steps, NewStepDeleteMetadataCas(branch, snap.MetadataRefOids[branch]))
		plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(branch))
	}
	return plan, nil
}

// PlanMove builds the move pattern: reparent a single tracked
// branch onto a different parent, recomputing its recorded base against
// the new parent's tip. Unlike PlanRestack, move never rewrites history;
// the caller is expected to follow up with a restack once the new parent
// relationship is recorded.
func PlanMove(opID string, snap *scanner.RepoSnapshot, branch, newParent domain.BranchName, newBase domain.ObjectID, now time.Time) (*Plan, error) {
	meta, ok := snap.Metadata[branch]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), branch.String())
	}
	if meta.Freeze.Frozen() {
		return nil, latticeerrors.FrozenBranch(branch.String(), meta.Freeze.Reason)
	}
	if newParent == branch {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindParentCycle, "a branch cannot be its own parent"), branch.String())
	}
	if _, ok := snap.Metadata[newParent]; !ok && newParent != snap.Graph.Trunk {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "new parent branch is not tracked"), newParent.String())
	}

	plan := &Plan{OpID: opID, Command: "move"}
	updated := *meta
	updated.Parent = newParent
	updated.Base = newBase
	updated.UpdatedAt = now
	plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated))
	plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(branch))
	return plan, nil
}

// PlanModify builds the modify pattern: amend the tip commit of
// a tracked branch in place. Descendants' recorded bases go stale the
// moment the amend lands, but resolving their new base requires the
// post-amend oid this plan cannot know until the RunGit step actually
// executes; rather than bake a deferred reference into the plan, modify
// leaves cascading to an explicit `restack --stack`, the same split this
// codebase's rebase pattern already uses between planning and execution.
func PlanModify(opID string, snap *scanner.RepoSnapshot, branch domain.BranchName, now time.Time) (*Plan, error) {
	meta, ok := snap.Metadata[branch]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), branch.String())
	}
	if meta.Freeze.Frozen() {
		return nil, latticeerrors.FrozenBranch(branch.String(), meta.Freeze.Reason)
	}

	branchRef := domain.HeadsRefname(branch)
	plan := &Plan{OpID: opID, Command: "modify"}
	plan.Steps = append(plan.Steps,
		NewStepCheckpoint("modify:"+branch.String()),
		NewStepRunGit(
			fmt.Sprintf("amend tip of %s", branch),
			[]domain.Refname{branchRef},
			"commit", "--amend", "--no-edit",
		),
	)

	updated := *meta
	updated.UpdatedAt = now
	plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated))
	plan.TouchedRefs = append(plan.TouchedRefs, branchRef, domain.MetadataRefname(branch))
	return plan, nil
}

// PlanFold builds the fold pattern: absorb a branch's commits
// into its parent by fast-forwarding the parent ref to the branch's tip,
// then remove the branch and re-parent its children onto the parent.
// Because every tracked branch is rebased onto its parent's tip before a
// fold is planned, the fold target is always a linear descendant of its
// parent, so the parent can be fast-forwarded with a plain ref move
// instead of a real merge commit.
func PlanFold(opID string, snap *scanner.RepoSnapshot, target domain.BranchName, now time.Time) (*Plan, error) {
	meta, ok := snap.Metadata[target]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), target.String())
	}
	if meta.Freeze.Frozen() {
		return nil, latticeerrors.FrozenBranch(target.String(), meta.Freeze.Reason)
	}
	parent := meta.Parent
	if parent == snap.Graph.Trunk {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindInvalidState, "cannot fold a branch directly onto trunk"), target.String())
	}
	parentMeta, ok := snap.Metadata[parent]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "parent branch is not tracked"), parent.String())
	}
	targetTip, ok := snap.BranchTips[target]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch has no local ref"), target.String())
	}

	plan := &Plan{OpID: opID, Command: "fold"}
	parentRef := domain.HeadsRefname(parent)
	plan.Steps = append(plan.Steps,
		NewStepCheckpoint("fold:"+target.String()),
		NewStepRunGit(
			fmt.Sprintf("fold %s into %s", target, parent),
			[]domain.Refname{parentRef},
			"branch", "-f", string(parent), string(target),
		),
	)

	updatedParent := *parentMeta
	updatedParent.UpdatedAt = now
	plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(parent, snap.MetadataRefOids[parent], &updatedParent))
	plan.TouchedRefs = append(plan.TouchedRefs, parentRef, domain.MetadataRefname(parent))

	for branch, childMeta := range snap.Metadata {
		if childMeta.Parent != target {
			continue
		}
		updated := *childMeta
		updated.Parent = parent
		updated.UpdatedAt = now
		plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated))
		plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(branch))
	}

	targetRef := domain.HeadsRefname(target)
	plan.Steps = append(plan.Steps,
		NewStepDeleteRefCas(targetRef, targetTip, "folded into "+parent.String()),
		NewStepDeleteMetadataCas(target, snap.MetadataRefOids[target]),
	)
	plan.TouchedRefs = append(plan.TouchedRefs, targetRef, domain.MetadataRefname(target))
	return plan, nil
}

// PlanSplit builds the split pattern: the inverse of fold.
// A new branch is created at boundary (a commit strictly between target's
// recorded base and its tip), inheriting target's old parent and base,
// and target itself is re-pointed to treat the new branch as its parent
// from boundary forward. No history is rewritten: boundary already sits
// on target's ancestry chain, so splitting is purely a metadata and
// one-ref operation.
func PlanSplit(opID string, snap *scanner.RepoSnapshot, target, lowerName domain.BranchName, boundary domain.ObjectID, now time.Time) (*Plan, error) {
	meta, ok := snap.Metadata[target]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), target.String())
	}
	if meta.Freeze.Frozen() {
		return nil, latticeerrors.FrozenBranch(target.String(), meta.Freeze.Reason)
	}
	if _, exists := snap.BranchTips[lowerName]; exists {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindInvalidState, "a branch with that name already exists"), lowerName.String())
	}

	plan := &Plan{OpID: opID, Command: "split"}
	lowerRef := domain.HeadsRefname(lowerName)
	plan.Steps = append(plan.Steps,
		NewStepUpdateRefCas(lowerRef, domain.ZeroOID, boundary, fmt.Sprintf("split from %s", target)),
	)

	lowerMeta := &domain.BranchMetadata{
		Kind:          domain.SchemaKind,
		SchemaVersion: domain.SchemaVersion1,
		Branch:        lowerName,
		Parent:        meta.Parent,
		Base:          meta.Base,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(lowerName, domain.ZeroOID, lowerMeta))
	plan.TouchedRefs = append(plan.TouchedRefs, lowerRef, domain.MetadataRefname(lowerName))

	updatedTarget := *meta
	updatedTarget.Parent = lowerName
	updatedTarget.Base = boundary
	updatedTarget.UpdatedAt = now
	plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(target, snap.MetadataRefOids[target], &updatedTarget))
	plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(target))
	return plan, nil
}

// PlanRename builds the rename pattern: rename the Git
// branch itself, move its metadata record to the new name, then re-parent
// every child onto the new name.
func PlanRename(opID string, snap *scanner.RepoSnapshot, oldName, newName domain.BranchName, now time.Time) (*Plan, error) {
	meta, ok := snap.Metadata[oldName]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindBranchMissing, "branch is not tracked"), oldName.String())
	}
	if _, exists := snap.BranchTips[newName]; exists {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindInvalidRefName, "a branch with the new name already exists"), newName.String())
	}

	plan := &Plan{OpID: opID, Command: "rename"}
	plan.Steps = append(plan.Steps,
		NewStepRunGit(
			fmt.Sprintf("rename %s to %s", oldName, newName),
			[]domain.Refname{domain.HeadsRefname(newName)},
			"branch", "-m", string(oldName), string(newName),
		),
	)

	renamed := *meta
	renamed.Branch = newName
	renamed.UpdatedAt = now
	plan.Steps = append(plan.Steps,
		NewStepWriteMetadataCas(newName, domain.ZeroOID, &renamed),
		NewStepDeleteMetadataCas(oldName, snap.MetadataRefOids[oldName]),
	)
	plan.TouchedRefs = append(plan.TouchedRefs,
		domain.HeadsRefname(oldName), domain.HeadsRefname(newName),
		domain.MetadataRefname(oldName), domain.MetadataRefname(newName))

	for branch, childMeta := range snap.Metadata {
		if childMeta.Parent != oldName {
			continue
		}
		updated := *childMeta
		updated.Parent = newName
		updated.UpdatedAt = now
		plan.Steps = append(plan.Steps, NewStepWriteMetadataCas(branch, snap.MetadataRefOids[branch], &updated))
		plan.TouchedRefs = append(plan.TouchedRefs, domain.MetadataRefname(branch))
	}
	return plan, nil
}
