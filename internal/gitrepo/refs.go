package gitrepo

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// ResolveRef looks up a ref without peeling to a commit, so it works
// equally for refs/heads/* (tips) and refs/branch-metadata/* (which point
// directly at blobs).
func (r *Repo) ResolveRef(name domain.Refname) (domain.ObjectID, error) {
	ref, err := r.repo.Storer.Reference(plumbing.ReferenceName(name))
	if err != nil {
		return "", latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindRefNotFound, "ref not found"), string(name))
	}
	return domain.ObjectID(strings.ToLower(ref.Hash().String())), nil
}

// TryResolveRef is ResolveRef without an error for "not found".
func (r *Repo) TryResolveRef(name domain.Refname) (domain.ObjectID, bool, error) {
	oid, err := r.ResolveRef(name)
	if err != nil {
		if latticeerrors.Is(err, latticeerrors.KindRefNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return oid, true, nil
}

// UpdateRefCAS creates or atomically updates name to newOid, iff the
// current value equals expectedOld. expectedOld == ZeroOID means "must not
// exist yet". This is the sole primitive every WriteMetadataCas,
// UpdateRefCas and ledger append step is built on.
func (r *Repo) UpdateRefCAS(name domain.Refname, newOid, expectedOld domain.ObjectID, reason string) error {
	refName := plumbing.ReferenceName(name)
	newRef := plumbing.NewHashReference(refName, plumbing.NewHash(string(newOid)))

	var oldRef *plumbing.Reference
	if !expectedOld.IsZero() {
		oldRef = plumbing.NewHashReference(refName, plumbing.NewHash(string(expectedOld)))
	} else if actual, exists, err := r.TryResolveRef(name); err != nil {
		return err
	} else if exists {
		return latticeerrors.CasFailed(string(name), string(expectedOld), string(actual))
	}

	if err := r.repo.Storer.CheckAndSetReference(newRef, oldRef); err != nil {
		actual, _, _ := r.TryResolveRef(name)
		return latticeerrors.CasFailed(string(name), string(expectedOld), string(actual))
	}
	return nil
}

// DeleteRefCAS removes name, iff its current value equals expectedOld.
func (r *Repo) DeleteRefCAS(name domain.Refname, expectedOld domain.ObjectID) error {
	actual, exists, err := r.TryResolveRef(name)
	if err != nil {
		return err
	}
	if !exists || actual != expectedOld {
		return latticeerrors.CasFailed(string(name), string(expectedOld), string(actual))
	}
	if err := r.repo.Storer.RemoveReference(plumbing.ReferenceName(name)); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to delete ref", err)
	}
	return nil
}

// UpdateRefForce and DeleteRefForce bypass CAS entirely. They exist solely
// for the executor's own undo/rollback paths; no planner step may reach
// them.
func (r *Repo) UpdateRefForce(name domain.Refname, oid domain.ObjectID) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(string(oid)))
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to force-update ref", err)
	}
	return nil
}

func (r *Repo) DeleteRefForce(name domain.Refname) error {
	if err := r.repo.Storer.RemoveReference(plumbing.ReferenceName(name)); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to force-delete ref", err)
	}
	return nil
}

// ListRefsByPrefix enumerates every ref whose name starts with prefix.
func (r *Repo) ListRefsByPrefix(prefix string) ([]domain.Refname, error) {
	iter, err := r.repo.Storer.IterReferences()
	if err != nil {
		return nil, latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to iterate refs", err)
	}
	var out []domain.Refname
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := string(ref.Name())
		if strings.HasPrefix(name, prefix) {
			out = append(out, domain.Refname(name))
		}
		return nil
	})
	if err != nil {
		return nil, latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to iterate refs", err)
	}
	return out, nil
}

// ListBranches returns every refs/heads/* branch as a validated BranchName.
func (r *Repo) ListBranches() ([]domain.BranchName, error) {
	refs, err := r.ListRefsByPrefix(domain.HeadsPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BranchName, 0, len(refs))
	for _, ref := range refs {
		name := strings.TrimPrefix(string(ref), domain.HeadsPrefix)
		branch, err := domain.ValidateBranchName(name)
		if err != nil {
			continue // surfaced by the scanner as an issue, not a hard failure here
		}
		out = append(out, branch)
	}
	return out, nil
}

// ListMetadataRefs returns every refs/branch-metadata/* branch name.
func (r *Repo) ListMetadataRefs() ([]domain.BranchName, error) {
	refs, err := r.ListRefsByPrefix(domain.BranchMetadataPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BranchName, 0, len(refs))
	for _, ref := range refs {
		branch, ok := domain.BranchFromMetadataRefname(ref)
		if !ok {
			continue
		}
		out = append(out, branch)
	}
	return out, nil
}
