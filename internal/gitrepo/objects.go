package gitrepo

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// WriteTree stores tree as a new tree object and returns its oid. Used by
// the event ledger to build each entry's single-file tree.
func (r *Repo) WriteTree(tree *object.Tree) (domain.ObjectID, error) {
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.TreeObject)
	if err := tree.Encode(obj); err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to encode tree", err)
	}
	oid, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to store tree", err)
	}
	return domain.ObjectID(oid.String()), nil
}

// WriteCommit stores commit as a new commit object and returns its oid.
// Used by the event ledger to append each entry to the commit chain.
func (r *Repo) WriteCommit(commit *object.Commit) (domain.ObjectID, error) {
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)
	if err := commit.Encode(obj); err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to encode commit", err)
	}
	oid, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to store commit", err)
	}
	return domain.ObjectID(oid.String()), nil
}

// TreeEntryOid returns the blob oid of the named entry in commitOid's
// tree. Used by the ledger to read back each entry's event.json.
func (r *Repo) TreeEntryOid(commitOid domain.ObjectID, name string) (domain.ObjectID, error) {
	c, err := r.commitObject(commitOid)
	if err != nil {
		return "", err
	}
	tree, err := c.Tree()
	if err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to read commit tree", err)
	}
	entry, err := tree.FindEntry(name)
	if err != nil {
		return "", latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindObjectNotFound, "tree entry not found"), name)
	}
	return domain.ObjectID(entry.Hash.String()), nil
}
