package github

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// TokenSource names where a resolved token came from, carried on TokenInfo.
type TokenSource string

const (
	SourceEnvVar    TokenSource = "GITHUB_TOKEN"
	SourceGhEnvVar  TokenSource = "GH_TOKEN"
	SourceGhConfig  TokenSource = "~/.config/gh/hosts.yml"
	SourceGitConfig TokenSource = "git config github.token"
)

// TokenInfo is a resolved credential plus the source it came from.
type TokenInfo struct {
	Token  string
	Source TokenSource
}

// getGitHubToken resolves a credential for github.com, trying
// GITHUB_TOKEN, GH_TOKEN, the gh CLI config, then git config, in that
// order.
func getGitHubToken() (string, error) {
	info, err := getGitHubTokenInfo()
	if err != nil {
		return "", err
	}
	return info.Token, nil
}

// getGitHubTokenInfo is getGitHubToken, additionally reporting which
// source supplied the token.
func getGitHubTokenInfo() (*TokenInfo, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return &TokenInfo{Token: token, Source: SourceEnvVar}, nil
	}
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return &TokenInfo{Token: token, Source: SourceGhEnvVar}, nil
	}
	if token, err := readGhConfigToken(); err == nil && token != "" {
		return &TokenInfo{Token: token, Source: SourceGhConfig}, nil
	}
	if token, err := readGitConfigToken(); err == nil && token != "" {
		return &TokenInfo{Token: token, Source: SourceGitConfig}, nil
	}

	return nil, latticeerrors.AuthUnavailable("github.com", nil)
}

// readGhConfigToken reads token from gh CLI config
func readGhConfigToken() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(home, ".config", "gh", "hosts.yml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", err
	}

	var config map[string]map[string]string
	if err := yaml.Unmarshal(data, &config); err != nil {
		return "", err
	}

	if ghConfig, ok := config["github.com"]; ok {
		if token, ok := ghConfig["oauth_token"]; ok {
			return token, nil
		}
	}

	return "", fmt.Errorf("no token in gh config")
}

// readGitConfigToken reads token from git config
func readGitConfigToken() (string, error) {
	cmd := exec.Command("git", "config", "--global", "github.token")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(string(output))
	if token == "" {
		return "", fmt.Errorf("git config github.token is empty")
	}

	return token, nil
}

// ValidateToken probes the configured credential with a cheap API call,
// surfacing an AuthUnavailable error if the API rejects it. The token's
// scopes are not inspected; the error's hint names the repo scope.
func (c *Client) ValidateToken() error {
	_, _, err := c.client.Users.Get(c.ctx, "")
	if err != nil {
		return latticeerrors.WithHint(
			latticeerrors.AuthUnavailable("github.com", err),
			"Required scopes: repo (full control of private repositories).",
		)
	}
	return nil
}

// CheckPermissions reads the authenticated user's pull/push/admin
// permissions on the repository.
func (c *Client) CheckPermissions() (*RepositoryPermissions, error) {
	repo, _, err := c.client.Repositories.Get(c.ctx, c.owner, c.repo)
	if err != nil {
		return nil, latticeerrors.ForgeRequest("get repository", err)
	}

	perms := repo.GetPermissions()
	return &RepositoryPermissions{
		Pull:  perms["pull"],
		Push:  perms["push"],
		Admin: perms["admin"],
	}, nil
}

// RepositoryPermissions is the authenticated user's access level on the
// tracked repository.
type RepositoryPermissions struct {
	Pull  bool
	Push  bool
	Admin bool
}
