// Package secrets provides the two credential backends a host/review
// adapter authenticates through: a local file store and HashiCorp Vault
// (KVv2 get/put, with a reachability probe), behind one Store interface so
// the remote adapter never knows which backend is in use.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	latticeerrors "github.com/lcgerke/lattice/internal/errors"
)

// Store is the interface both backends satisfy. Tokens are never cached
// once read.
type Store interface {
	GetToken(ctx context.Context, forge string) (string, error)
	PutToken(ctx context.Context, forge, token string) error
	Reachable(ctx context.Context) bool
}

// Open selects a Store by provider name ("file" or "vault"), matching
// config.Config.SecretsProvider.
func Open(provider string, baseDir string) (Store, error) {
	switch provider {
	case "", "file":
		return NewFileStore(baseDir), nil
	case "vault":
		return NewVaultStore()
	default:
		return nil, latticeerrors.New(latticeerrors.KindInvalidState, fmt.Sprintf("unknown secrets provider %q", provider))
	}
}

// FileStore persists tokens as individual files under
// <baseDir>/lattice/secrets/<forge>.token, atomic temp-then-rename at 0600.
type FileStore struct {
	dir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{dir: filepath.Join(baseDir, "lattice", "secrets")}
}

func (f *FileStore) tokenPath(forge string) string {
	return filepath.Join(f.dir, forge+".token")
}

func (f *FileStore) GetToken(_ context.Context, forge string) (string, error) {
	data, err := os.ReadFile(f.tokenPath(forge))
	if err != nil {
		if os.IsNotExist(err) {
			return "", latticeerrors.WithEntity(latticeerrors.New(latticeerrors.KindAccessError, "no token stored for forge"), forge)
		}
		return "", latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to read token file", err)
	}
	return string(data), nil
}

func (f *FileStore) PutToken(_ context.Context, forge, token string) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to create secrets directory", err)
	}
	tmp, err := os.CreateTemp(f.dir, ".token-*")
	if err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to create temp token file", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to write token", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to chmod token file", err)
	}
	if err := tmp.Close(); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to close temp token file", err)
	}
	if err := os.Rename(tmp.Name(), f.tokenPath(forge)); err != nil {
		return latticeerrors.Wrap(latticeerrors.KindStorageIO, "failed to rename token file into place", err)
	}
	return nil
}

func (f *FileStore) Reachable(_ context.Context) bool {
	info, err := os.Stat(f.dir)
	return err == nil && info.IsDir()
}

// VaultStore wraps hashicorp/vault/api directly: KVv2 under the "secret"
// mount, a timeout-bounded health probe before every reachability check.
type VaultStore struct {
	client *vaultapi.Client
}

func NewVaultStore() (*VaultStore, error) {
	cfg := vaultapi.DefaultConfig()
	if cfg == nil {
		return nil, latticeerrors.New(latticeerrors.KindAccessError, "failed to build default vault config")
	}
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, latticeerrors.Wrap(latticeerrors.KindAccessError, "failed to create vault client", err)
	}
	return &VaultStore{client: client}, nil
}

func (v *VaultStore) secretPath(forge string) string {
	return fmt.Sprintf("lattice/%s/token", forge)
}

func (v *VaultStore) GetToken(ctx context.Context, forge string) (string, error) {
	secret, err := v.client.KVv2("secret").Get(ctx, v.secretPath(forge))
	if err != nil {
		return "", latticeerrors.Wrap(latticeerrors.KindAccessError, "failed to read token from vault", err)
	}
	if secret == nil || secret.Data == nil {
		return "", latticeerrors.WithEntity(latticeerrors.New(latticeerrors.KindAccessError, "no token stored for forge"), forge)
	}
	token, ok := secret.Data["token"].(string)
	if !ok {
		return "", latticeerrors.WithEntity(latticeerrors.New(latticeerrors.KindAccessError, "token data missing 'token' field"), forge)
	}
	return token, nil
}

func (v *VaultStore) PutToken(ctx context.Context, forge, token string) error {
	_, err := v.client.KVv2("secret").Put(ctx, v.secretPath(forge), map[string]interface{}{"token": token})
	if err != nil {
		return latticeerrors.Wrap(latticeerrors.KindAccessError, "failed to write token to vault", err)
	}
	return nil
}

func (v *VaultStore) Reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := v.client.Sys().HealthWithContext(ctx)
	return err == nil
}
