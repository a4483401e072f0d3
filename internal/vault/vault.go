// Package vault is the wallet's secure storage: secrets (seed phrase,
// PIN) are encrypted at rest; non-sensitive settings (network mode) are
// stored in plain form alongside them.
package vault

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/wllt-labs/wllt-core/internal/storage"
)

// Secret keys.
const (
	KeySeedPhrase = "wallet_seed_phrase"
	KeyPIN        = "wallet_pin"
)

// Setting keys.
const (
	KeyNetworkMode = "network_mode"
)

// Vault stores encrypted secrets and plain settings in two isolated
// namespaces of one key-value database.
type Vault struct {
	secrets  *storage.PrefixDB
	settings *storage.PrefixDB
	password []byte
	params   EncryptionParams
}

// New creates a vault over db. The password protects all secrets; an
// empty password still encrypts, it just derives the key from empty
// input.
func New(db storage.DB, password []byte) *Vault {
	return NewWithParams(db, password, DefaultParams())
}

// NewWithParams creates a vault with explicit encryption parameters.
func NewWithParams(db storage.DB, password []byte, params EncryptionParams) *Vault {
	pw := make([]byte, len(password))
	copy(pw, password)
	return &Vault{
		secrets:  storage.NewPrefixDB(db, []byte("secret/")),
		settings: storage.NewPrefixDB(db, []byte("setting/")),
		password: pw,
		params:   params,
	}
}

// Secret returns the decrypted secret for key, with ok reporting
// whether it exists.
func (v *Vault) Secret(key string) ([]byte, bool, error) {
	blob, err := v.secrets.Get([]byte(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read secret %s: %w", key, err)
	}
	plain, err := Decrypt(blob, v.password)
	if err != nil {
		return nil, false, fmt.Errorf("unlock secret %s: %w", key, err)
	}
	return plain, true, nil
}

// SetSecret encrypts and stores a secret.
func (v *Vault) SetSecret(key string, value []byte) error {
	blob, err := Encrypt(value, v.password, v.params)
	if err != nil {
		return fmt.Errorf("seal secret %s: %w", key, err)
	}
	if err := v.secrets.Put([]byte(key), blob); err != nil {
		return fmt.Errorf("store secret %s: %w", key, err)
	}
	return nil
}

// DeleteSecret removes a secret. Deleting an absent secret is not an
// error.
func (v *Vault) DeleteSecret(key string) error {
	if err := v.secrets.Delete([]byte(key)); err != nil {
		return fmt.Errorf("delete secret %s: %w", key, err)
	}
	return nil
}

// DeleteAllSecrets removes every secret in the vault. Settings are left
// untouched.
func (v *Vault) DeleteAllSecrets() error {
	if err := v.secrets.DeleteAll(); err != nil {
		return fmt.Errorf("wipe secrets: %w", err)
	}
	return nil
}

// HasSecret checks whether a secret exists without decrypting it.
func (v *Vault) HasSecret(key string) (bool, error) {
	return v.secrets.Has([]byte(key))
}

// Setting returns a plain (non-sensitive) setting value.
func (v *Vault) Setting(key string) (string, bool, error) {
	val, err := v.settings.Get([]byte(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return string(val), true, nil
}

// SetSetting stores a plain setting value.
func (v *Vault) SetSetting(key, value string) error {
	if err := v.settings.Put([]byte(key), []byte(value)); err != nil {
		return fmt.Errorf("store setting %s: %w", key, err)
	}
	return nil
}

// SetPIN stores the wallet PIN as a vault secret.
func (v *Vault) SetPIN(pin string) error {
	return v.SetSecret(KeyPIN, []byte(pin))
}

// HasPIN reports whether a PIN has been set.
func (v *Vault) HasPIN() (bool, error) {
	return v.HasSecret(KeyPIN)
}

// VerifyPIN compares pin against the stored PIN in constant time.
// A missing stored PIN never verifies.
func (v *Vault) VerifyPIN(pin string) (bool, error) {
	stored, ok, err := v.Secret(KeyPIN)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare(stored, []byte(pin)) == 1, nil
}
