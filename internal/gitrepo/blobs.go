package gitrepo

import (
	"io"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/memory"

	"github.com/lcgerke/lattice/internal/domain"
	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// ReadBlob reads the content-addressed object at oid as raw bytes.
func (r *Repo) ReadBlob(oid domain.ObjectID) ([]byte, error) {
	obj, err := r.repo.Storer.EncodedObject(plumbing.BlobObject, plumbing.NewHash(string(oid)))
	if err != nil {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindObjectNotFound, "blob not found"), string(oid))
	}
	reader, err := obj.Reader()
	if err != nil {
		return nil, latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to open blob reader", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to read blob", err)
	}
	return data, nil
}

// ReadBlobAsString reads a blob and validates it as UTF-8.
func (r *Repo) ReadBlobAsString(oid domain.ObjectID) (string, error) {
	data, err := r.ReadBlob(oid)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindInvalidUTF8, "blob is not valid UTF-8"), string(oid))
	}
	return string(data), nil
}

// WriteBlob stores data as a blob object and returns its oid. Identical
// content yields the same oid: content-addressing handles dedup, the
// caller only needs the returned oid.
func (r *Repo) WriteBlob(data []byte) (domain.ObjectID, error) {
	obj := &memory.Object{}
	obj.SetType(plumbing.BlobObject)
	writer, err := obj.Writer()
	if err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to open blob writer", err)
	}
	if _, err := writer.Write(data); err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to write blob", err)
	}
	if err := writer.Close(); err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to finalize blob", err)
	}

	oid, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindGitInternal, "failed to store blob", err)
	}
	return domain.ObjectID(oid.String()), nil
}
