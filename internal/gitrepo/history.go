package gitrepo

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

func (r *Repo) commitObject(oid domain.ObjectID) (*object.Commit, error) {
	c, err := r.repo.CommitObject(plumbing.NewHash(string(oid)))
	if err != nil {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindObjectNotFound, "commit not found"), string(oid))
	}
	return c, nil
}

// MergeBase returns the best common ancestor of a and b, or false if there
// is none (unrelated histories).
func (r *Repo) MergeBase(a, b domain.ObjectID) (domain.ObjectID, bool, error) {
	ca, err := r.commitObject(a)
	if err != nil {
		return "", false, err
	}
	cb, err := r.commitObject(b)
	if err != nil {
		return "", false, err
	}

	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", false, latticeerrors.Wrap(latticeerrors.KindGitInternal, "merge-base computation failed", err)
	}
	if len(bases) == 0 {
		return "", false, nil
	}
	return domain.ObjectID(bases[0].Hash.String()), true, nil
}

// IsAncestor reports whether a is an ancestor of (or equal to) b.
func (r *Repo) IsAncestor(a, b domain.ObjectID) (bool, error) {
	if a == b {
		return true, nil
	}
	ca, err := r.commitObject(a)
	if err != nil {
		return false, err
	}
	cb, err := r.commitObject(b)
	if err != nil {
		return false, err
	}
	ok, err := ca.IsAncestor(cb)
	if err != nil {
		return false, latticeerrors.Wrap(latticeerrors.KindGitInternal, "ancestry check failed", err)
	}
	return ok, nil
}

// CommitCount returns the number of commits reachable from tip but not from
// base (i.e. len(git rev-list base..tip)).
func (r *Repo) CommitCount(base, tip domain.ObjectID) (uint64, error) {
	baseCommit, err := r.commitObject(base)
	if err != nil {
		return 0, err
	}
	tipCommit, err := r.commitObject(tip)
	if err != nil {
		return 0, err
	}

	baseAncestors := map[plumbing.Hash]bool{}
	iter := object.NewCommitPreorderIter(baseCommit, nil, nil)
	_ = iter.ForEach(func(c *object.Commit) error {
		baseAncestors[c.Hash] = true
		return nil
	})

	var count uint64
	tipIter := object.NewCommitPreorderIter(tipCommit, nil, nil)
	err = tipIter.ForEach(func(c *object.Commit) error {
		if baseAncestors[c.Hash] {
			return storer.ErrStop
		}
		count++
		return nil
	})
	if err != nil && err != storer.ErrStop {
		return 0, latticeerrors.Wrap(latticeerrors.KindGitInternal, "commit walk failed", err)
	}
	return count, nil
}

// CommitInfo is the subset of commit metadata the core needs (message for
// journaling, author time for display).
type CommitInfo struct {
	Oid       domain.ObjectID
	Message   string
	AuthorAt  time.Time
	Parents   []domain.ObjectID
}

// CommitInfo returns commit metadata for oid.
func (r *Repo) CommitInfo(oid domain.ObjectID) (CommitInfo, error) {
	c, err := r.commitObject(oid)
	if err != nil {
		return CommitInfo{}, err
	}
	parents := make([]domain.ObjectID, 0, len(c.ParentHashes))
	for _, h := range c.ParentHashes {
		parents = append(parents, domain.ObjectID(h.String()))
	}
	return CommitInfo{
		Oid:      oid,
		Message:  c.Message,
		AuthorAt: c.Author.When,
		Parents:  parents,
	}, nil
}

// CommitParents returns the parent oids of oid.
func (r *Repo) CommitParents(oid domain.ObjectID) ([]domain.ObjectID, error) {
	info, err := r.CommitInfo(oid)
	if err != nil {
		return nil, err
	}
	return info.Parents, nil
}
