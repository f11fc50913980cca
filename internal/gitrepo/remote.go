package gitrepo

import (
	"fmt"
	"net/url"
	"strings"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// HostRemote is a remote URL decomposed into the forge host and the
// owner/repo path component a host adapter needs to address the API.
type HostRemote struct {
	Host  string
	Owner string
	Repo  string
}

// RemoteURL returns the fetch URL configured for name.
func (r *Repo) RemoteURL(name string) (string, error) {
	cfg, err := r.rawConfig()
	if err != nil {
		return "", err
	}
	remote, ok := cfg.Remotes[name]
	if !ok || len(remote.URLs) == 0 {
		return "", latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindRefNotFound, "remote not configured"), name)
	}
	return remote.URLs[0], nil
}

// DefaultRemote returns the name of the remote tracked by the current
// branch's upstream if one exists, falling back to "origin" when present,
// and otherwise the sole configured remote if there is exactly one.
func (r *Repo) DefaultRemote() (string, error) {
	cfg, err := r.rawConfig()
	if err != nil {
		return "", err
	}
	if head, err := r.repo.Head(); err == nil {
		branchName := head.Name().Short()
		if b, ok := cfg.Branches[branchName]; ok && b.Remote != "" {
			return b.Remote, nil
		}
	}
	if _, ok := cfg.Remotes["origin"]; ok {
		return "origin", nil
	}
	if len(cfg.Remotes) == 1 {
		for name := range cfg.Remotes {
			return name, nil
		}
	}
	return "", latticeerrors.New(latticeerrors.KindRefNotFound, "no default remote could be determined")
}

// ListRemoteNames returns the configured remote names.
func (r *Repo) ListRemoteNames() ([]string, error) {
	cfg, err := r.rawConfig()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cfg.Remotes))
	for name := range cfg.Remotes {
		names = append(names, name)
	}
	return names, nil
}

// PushURLs returns every URL a push to name would target. go-git's config
// model does not distinguish push-only URLs from the fetch URL the way
// `git remote set-url --push` does on disk, so under a dual-push remote
// (a bare mirror alongside a forge) this returns every URL configured,
// first entry first, for the porcelain layer to push to in turn.
func (r *Repo) PushURLs(name string) ([]string, error) {
	cfg, err := r.rawConfig()
	if err != nil {
		return nil, err
	}
	remote, ok := cfg.Remotes[name]
	if !ok {
		return nil, latticeerrors.WithEntity(
			latticeerrors.New(latticeerrors.KindRefNotFound, "remote not configured"), name)
	}
	return remote.URLs, nil
}

// ParseHostRemote extracts (host, owner, repo) from a remote URL in either
// SSH shorthand (git@host:owner/repo.git) or HTTPS (https://host/owner/repo)
// form. The host adapters under internal/remote parse remote URLs on their
// own and do not call it.
func ParseHostRemote(remoteURL string) (HostRemote, error) {
	if strings.HasPrefix(remoteURL, "git@") {
		rest := strings.TrimPrefix(remoteURL, "git@")
		sep := strings.Index(rest, ":")
		if sep < 0 {
			return HostRemote{}, latticeerrors.New(latticeerrors.KindInvalidRefName, "unrecognized SSH remote URL")
		}
		host := rest[:sep]
		path := strings.TrimSuffix(rest[sep+1:], ".git")
		owner, repo, err := splitOwnerRepo(path)
		if err != nil {
			return HostRemote{}, err
		}
		return HostRemote{Host: host, Owner: owner, Repo: repo}, nil
	}

	u, err := url.Parse(remoteURL)
	if err != nil {
		return HostRemote{}, latticeerrors.Wrap(latticeerrors.KindInvalidRefName, "unparseable remote URL", err)
	}
	path := strings.TrimSuffix(strings.TrimPrefix(u.Path, "/"), ".git")
	owner, repo, err := splitOwnerRepo(path)
	if err != nil {
		return HostRemote{}, err
	}
	return HostRemote{Host: u.Host, Owner: owner, Repo: repo}, nil
}

func splitOwnerRepo(path string) (owner, repo string, err error) {
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", latticeerrors.New(latticeerrors.KindInvalidRefName, fmt.Sprintf("cannot extract owner/repo from %q", path))
	}
	return parts[0], parts[1], nil
}
