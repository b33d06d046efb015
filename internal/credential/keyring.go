package credential

import (
	"context"
	"encoding/json"
	"fmt"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/Iron-Ham/parley/internal/errors"
)

// keyringUser is the account name under which the record is stored. Only
// one credential is ever kept, so it is fixed.
const keyringUser = "default"

// KeyringStore keeps the credential in the OS keyring (Keychain, Secret
// Service, Windows Credential Manager).
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a KeyringStore using service as the keyring
// service name.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

// Load reads the saved credential.
func (ks *KeyringStore) Load(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	secret, err := gokeyring.Get(ks.service, keyringUser)
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return Record{}, errors.ErrNoSavedCredential
		}
		return Record{}, fmt.Errorf("failed to read keyring: %w", err)
	}
	return decode([]byte(secret))
}

// Save replaces the saved credential.
func (ks *KeyringStore) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := gokeyring.Set(ks.service, keyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

// Delete removes the saved credential if present.
func (ks *KeyringStore) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := gokeyring.Delete(ks.service, keyringUser); err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}
