package storage

import (
	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
	"github.com/lcgerke/lattice/internal/gitrepo"
)

// MetadataStore is a pure wrapper over the Git interface: branch tracking
// records as ref-addressed, CAS-mutated blobs. It holds no state of its
// own beyond the Repo handle.
type MetadataStore struct {
	repo *gitrepo.Repo
}

// NewMetadataStore constructs a store bound to repo.
func NewMetadataStore(repo *gitrepo.Repo) *MetadataStore {
	return &MetadataStore{repo: repo}
}

// MetadataRecord pairs a parsed branch metadata record with the oid of
// the blob its metadata ref currently points at, needed by callers to
// build CAS preconditions for later writes.
type MetadataRecord struct {
	RefOid   domain.ObjectID
	Metadata *domain.BranchMetadata
}

// Read resolves branch's metadata ref, reads the blob, and strictly
// parses it. Returns ok=false if the branch has no metadata ref at all
// (an untracked branch, not an error).
func (s *MetadataStore) Read(branch domain.BranchName) (MetadataRecord, bool, error) {
	refname := domain.MetadataRefname(branch)
	oid, exists, err := s.repo.TryResolveRef(refname)
	if err != nil {
		return MetadataRecord{}, false, err
	}
	if !exists {
		return MetadataRecord{}, false, nil
	}
	raw, err := s.repo.ReadBlob(oid)
	if err != nil {
		return MetadataRecord{}, false, err
	}
	meta, err := domain.ParseBranchMetadata(raw)
	if err != nil {
		return MetadataRecord{}, false, latticeerrors.MetadataUnparseable(string(branch), err)
	}
	return MetadataRecord{RefOid: oid, Metadata: meta}, true, nil
}

// WriteCAS canonical-serializes metadata, writes it as a new blob, and
// CAS-updates branch's metadata ref. expectedOldRefOid == ZeroOID means
// "must not already be tracked".
func (s *MetadataStore) WriteCAS(branch domain.BranchName, expectedOldRefOid domain.ObjectID, metadata *domain.BranchMetadata) (domain.ObjectID, error) {
	if err := metadata.Validate(); err != nil {
		return "", err
	}
	data, err := metadata.Serialize()
	if err != nil {
		return "", err
	}
	blobOid, err := s.repo.WriteBlob(data)
	if err != nil {
		return "", err
	}
	refname := domain.MetadataRefname(branch)
	if err := s.repo.UpdateRefCAS(refname, blobOid, expectedOldRefOid, "write branch metadata"); err != nil {
		return "", err
	}
	return blobOid, nil
}

// DeleteCAS removes branch's metadata ref, iff it currently points at
// expectedRefOid.
func (s *MetadataStore) DeleteCAS(branch domain.BranchName, expectedRefOid domain.ObjectID) error {
	return s.repo.DeleteRefCAS(domain.MetadataRefname(branch), expectedRefOid)
}

// List enumerates every tracked branch name (valid metadata refs).
func (s *MetadataStore) List() ([]domain.BranchName, error) {
	return s.repo.ListMetadataRefs()
}

// ListAll enumerates every tracked branch's parsed metadata record,
// skipping (but the caller is expected to log) parse failures rather
// than failing outright — the scanner is the caller that turns these
// into issues.
func (s *MetadataStore) ListAll() (map[domain.BranchName]MetadataRecord, []error) {
	branches, err := s.List()
	if err != nil {
		return nil, []error{err}
	}
	out := make(map[domain.BranchName]MetadataRecord, len(branches))
	var errs []error
	for _, branch := range branches {
		rec, ok, err := s.Read(branch)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			out[branch] = rec
		}
	}
	return out, errs
}
