// Package config loads and persists lattice's local configuration: atomic
// writes, and a staleness-aware read that reloads when the backing file
// changes instead of trusting an in-memory copy forever. The configuration
// is itself the durable source of truth, stored as TOML, rather than a
// cache of something fetched from elsewhere.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

const configFileName = "config.toml"

// Config is lattice's persisted configuration.
type Config struct {
	Trunk           string `toml:"trunk"`
	Remote          string `toml:"remote"`
	SecretsProvider string `toml:"secrets_provider"`
	DefaultForge    string `toml:"default_forge"`
}

// Default returns the configuration used when no file exists yet.
func Default() Config {
	return Config{
		Trunk:           "main",
		Remote:          "origin",
		SecretsProvider: "file",
		DefaultForge:    "github",
	}
}

// Manager reads Config from disk, reloading only when the file's mtime
// advances past what was last loaded, rather than trusting an in-memory
// copy forever or re-reading on every call.
type Manager struct {
	path      string
	loaded    Config
	loadedAt  time.Time
	fileMtime time.Time
}

// NewManager opens a Manager rooted at <commonDir>/lattice/config.toml,
// applying environment overrides on every Load.
func NewManager(commonDir string) *Manager {
	return &Manager{path: filepath.Join(commonDir, "lattice", configFileName)}
}

// Path returns the backing file path, for callers that need to display it
// (e.g. `lattice config get`).
func (m *Manager) Path() string { return m.path }

// Load returns the current configuration, re-reading the file if its
// mtime has advanced since the last Load, then applying env var
// overrides (LATTICE_TRUNK, LATTICE_REMOTE, LATTICE_SECRETS_PROVIDER,
// LATTICE_DEFAULT_FORGE) — env always wins over the file.
func (m *Manager) Load() (Config, error) {
	info, statErr := os.Stat(m.path)
	needsReload := m.loadedAt.IsZero()
	if statErr == nil {
		needsReload = needsReload || info.ModTime().After(m.fileMtime)
	}

	if needsReload {
		cfg := Default()
		if statErr == nil {
			if _, err := toml.DecodeFile(m.path, &cfg); err != nil {
				return Config{}, latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to parse config file", err)
			}
			m.fileMtime = info.ModTime()
		} else if !os.IsNotExist(statErr) {
			return Config{}, latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to stat config file", statErr)
		}
		m.loaded = cfg
		m.loadedAt = time.Now()
	}

	return applyEnvOverrides(m.loaded), nil
}

func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv("LATTICE_TRUNK"); v != "" {
		cfg.Trunk = v
	}
	if v := os.Getenv("LATTICE_REMOTE"); v != "" {
		cfg.Remote = v
	}
	if v := os.Getenv("LATTICE_SECRETS_PROVIDER"); v != "" {
		cfg.SecretsProvider = v
	}
	if v := os.Getenv("LATTICE_DEFAULT_FORGE"); v != "" {
		cfg.DefaultForge = v
	}
	return cfg
}

// Save persists cfg to the config file atomically (temp file in the same
// directory, then rename), matching the secret store's write discipline
// since this file can carry forge defaults operators consider sensitive
// enough to keep off a shared umask.
func (m *Manager) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to create config directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".config-*.toml")
	if err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to create temp config file", err)
	}
	defer os.Remove(tmp.Name())

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(cfg); err != nil {
		tmp.Close()
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to encode config", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to chmod temp config file", err)
	}
	if err := tmp.Close(); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to close temp config file", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to rename config file into place", err)
	}
	m.loadedAt = time.Time{} // force a reload on next Load
	return nil
}
