package vault

import (
	"bytes"
	"testing"

	"github.com/wllt-labs/wllt-core/internal/storage"
)

// testParams are weakened Argon2id parameters so tests stay fast.
var testParams = EncryptionParams{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
}

func testVault(t *testing.T) *Vault {
	t.Helper()
	v := New(storage.NewMemory(), []byte("device-password"))
	v.params = testParams
	return v
}

func TestSecretRoundTrip(t *testing.T) {
	v := testVault(t)

	phrase := []byte("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	if err := v.SetSecret(KeySeedPhrase, phrase); err != nil {
		t.Fatalf("SetSecret() error: %v", err)
	}

	got, ok, err := v.Secret(KeySeedPhrase)
	if err != nil {
		t.Fatalf("Secret() error: %v", err)
	}
	if !ok {
		t.Fatal("Secret() ok = false, want true")
	}
	if !bytes.Equal(got, phrase) {
		t.Errorf("Secret() = %q, want %q", got, phrase)
	}
}

func TestSecret_Missing(t *testing.T) {
	v := testVault(t)

	_, ok, err := v.Secret(KeySeedPhrase)
	if err != nil {
		t.Fatalf("Secret() error: %v", err)
	}
	if ok {
		t.Error("Secret() ok = true for missing key")
	}
}

func TestSecret_EncryptedAtRest(t *testing.T) {
	db := storage.NewMemory()
	v := New(db, []byte("pw"))
	v.params = testParams

	phrase := []byte("super secret seed")
	if err := v.SetSecret(KeySeedPhrase, phrase); err != nil {
		t.Fatalf("SetSecret() error: %v", err)
	}

	raw, err := db.Get([]byte("secret/" + KeySeedPhrase))
	if err != nil {
		t.Fatalf("raw Get() error: %v", err)
	}
	if bytes.Contains(raw, phrase) {
		t.Error("stored blob contains the plaintext secret")
	}
}

func TestSecret_WrongPassword(t *testing.T) {
	db := storage.NewMemory()
	v := New(db, []byte("correct"))
	v.params = testParams
	if err := v.SetSecret(KeySeedPhrase, []byte("seed")); err != nil {
		t.Fatalf("SetSecret() error: %v", err)
	}

	other := New(db, []byte("wrong"))
	other.params = testParams
	if _, _, err := other.Secret(KeySeedPhrase); err == nil {
		t.Error("Secret() with wrong password should fail")
	}
}

func TestDeleteSecret(t *testing.T) {
	v := testVault(t)

	if err := v.SetSecret(KeySeedPhrase, []byte("seed")); err != nil {
		t.Fatalf("SetSecret() error: %v", err)
	}
	if err := v.DeleteSecret(KeySeedPhrase); err != nil {
		t.Fatalf("DeleteSecret() error: %v", err)
	}

	ok, err := v.HasSecret(KeySeedPhrase)
	if err != nil {
		t.Fatalf("HasSecret() error: %v", err)
	}
	if ok {
		t.Error("secret should be gone after DeleteSecret()")
	}

	// Deleting again is not an error.
	if err := v.DeleteSecret(KeySeedPhrase); err != nil {
		t.Errorf("DeleteSecret() on missing key error: %v", err)
	}
}

func TestDeleteAllSecrets(t *testing.T) {
	v := testVault(t)

	if err := v.SetSecret(KeySeedPhrase, []byte("seed")); err != nil {
		t.Fatalf("SetSecret() error: %v", err)
	}
	if err := v.SetPIN("123456"); err != nil {
		t.Fatalf("SetPIN() error: %v", err)
	}
	if err := v.SetSetting(KeyNetworkMode, "testnet"); err != nil {
		t.Fatalf("SetSetting() error: %v", err)
	}

	if err := v.DeleteAllSecrets(); err != nil {
		t.Fatalf("DeleteAllSecrets() error: %v", err)
	}

	for _, key := range []string{KeySeedPhrase, KeyPIN} {
		ok, err := v.HasSecret(key)
		if err != nil {
			t.Fatalf("HasSecret(%s) error: %v", key, err)
		}
		if ok {
			t.Errorf("secret %s survived DeleteAllSecrets()", key)
		}
	}

	// Settings live in a separate namespace and survive.
	got, ok, err := v.Setting(KeyNetworkMode)
	if err != nil {
		t.Fatalf("Setting() error: %v", err)
	}
	if !ok || got != "testnet" {
		t.Errorf("setting lost: %q, %v", got, ok)
	}
}

func TestSettings(t *testing.T) {
	v := testVault(t)

	_, ok, err := v.Setting(KeyNetworkMode)
	if err != nil {
		t.Fatalf("Setting() error: %v", err)
	}
	if ok {
		t.Error("Setting() ok = true for missing key")
	}

	if err := v.SetSetting(KeyNetworkMode, "testnet"); err != nil {
		t.Fatalf("SetSetting() error: %v", err)
	}
	got, ok, err := v.Setting(KeyNetworkMode)
	if err != nil {
		t.Fatalf("Setting() error: %v", err)
	}
	if !ok || got != "testnet" {
		t.Errorf("Setting() = %q, %v; want %q, true", got, ok, "testnet")
	}
}

func TestPIN(t *testing.T) {
	v := testVault(t)

	ok, err := v.HasPIN()
	if err != nil {
		t.Fatalf("HasPIN() error: %v", err)
	}
	if ok {
		t.Error("HasPIN() = true before SetPIN")
	}

	match, err := v.VerifyPIN("123456")
	if err != nil {
		t.Fatalf("VerifyPIN() error: %v", err)
	}
	if match {
		t.Error("VerifyPIN() = true with no stored PIN")
	}

	if err := v.SetPIN("123456"); err != nil {
		t.Fatalf("SetPIN() error: %v", err)
	}

	match, err = v.VerifyPIN("123456")
	if err != nil {
		t.Fatalf("VerifyPIN() error: %v", err)
	}
	if !match {
		t.Error("VerifyPIN() = false for the correct PIN")
	}

	match, err = v.VerifyPIN("654321")
	if err != nil {
		t.Fatalf("VerifyPIN() error: %v", err)
	}
	if match {
		t.Error("VerifyPIN() = true for the wrong PIN")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	data := []byte("plaintext payload")
	password := []byte("password")

	blob, err := Encrypt(data, password, testParams)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	got, err := Decrypt(blob, password)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Decrypt() = %q, want %q", got, data)
	}

	if _, err := Decrypt(blob, []byte("not the password")); err == nil {
		t.Error("Decrypt() with wrong password should fail")
	}

	// Tampered ciphertext must not decrypt.
	blob[len(blob)-1] ^= 0xFF
	if _, err := Decrypt(blob, password); err == nil {
		t.Error("Decrypt() of tampered data should fail")
	}
}

func TestDecrypt_TooShort(t *testing.T) {
	if _, err := Decrypt([]byte("short"), []byte("pw")); err == nil {
		t.Error("Decrypt() of truncated blob should fail")
	}
}
