// Package credential persists the single remembered authentication token.
//
// Two backends implement [Store]: [FileStore] keeps a small JSON document on
// disk, [KeyringStore] keeps the same document in the OS keyring. Neither
// interprets the token.
package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Iron-Ham/parley/internal/config"
	"github.com/Iron-Ham/parley/internal/errors"
)

// Record is the persisted credential.
type Record struct {
	Token string `json:"token"`
}

// Store loads, saves and deletes the one saved credential.
//
// Load returns errors.ErrNoSavedCredential when nothing usable is stored.
// Delete succeeds when nothing is stored.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context) error
}

// Open returns the backend selected by cfg.Credentials.Backend.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Credentials.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.CredentialsPath()), nil
	case config.BackendKeyring:
		return NewKeyringStore(cfg.Credentials.KeyringService), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.Credentials.Backend)
	}
}

func decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to parse credential: %w", err)
	}
	if rec.Token == "" {
		return Record{}, errors.ErrNoSavedCredential
	}
	return rec, nil
}

// -----------------------------------------------------------------------------
// FileStore
// -----------------------------------------------------------------------------

// FileStore keeps the credential as {"token": "..."} in a single file,
// readable only by the owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore for path. The file and its directory are
// created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the credential file.
func (fs *FileStore) Path() string {
	return fs.path
}

// Load reads the saved credential.
func (fs *FileStore) Load(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, errors.ErrNoSavedCredential
		}
		return Record{}, errors.Wrapf(err, "failed to read credential file %s", fs.path)
	}
	return decode(data)
}

// Save replaces the saved credential atomically.
func (fs *FileStore) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	return atomicWriteFile(fs.path, data, 0600)
}

// Delete removes the credential file if it exists.
func (fs *FileStore) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete credential file %s", fs.path)
	}
	return nil
}

// atomicWriteFile writes data to a temp file in the same directory and
// renames it over path, so readers never see a partial token.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, perm); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
