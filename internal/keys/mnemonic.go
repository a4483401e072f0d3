// Package keys implements mnemonic handling, deterministic key
// derivation and the signing primitives for the wallet.
//
// Key material never leaves this package in raw form: callers receive a
// *KeyMaterial and use its signing methods.
package keys

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// DefaultEntropyBits is the entropy size for newly generated wallets
// (128 bits, a 12-word mnemonic).
const DefaultEntropyBits = 128

// ErrEntropy is returned when mnemonic entropy cannot be generated.
var ErrEntropy = errors.New("entropy generation failed")

// GenerateMnemonic creates a new BIP-39 mnemonic from the given entropy
// size in bits (128 to 256 in 32-bit steps).
func GenerateMnemonic(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks if a mnemonic is valid per BIP-39
// (correct word count, valid words, valid checksum).
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}
