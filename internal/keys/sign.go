package keys

import (
	"errors"
	"fmt"
	"strconv"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// personalMessagePrefix is the EIP-191 header prepended before hashing a
// personal message. The decimal byte length of the message follows it.
const personalMessagePrefix = "\x19Ethereum Signed Message:\n"

// ErrSigningFailed is returned when a signature cannot be produced.
var ErrSigningFailed = errors.New("signing failed")

// Sign produces a recoverable 65-byte [R || S || V] signature over a
// 32-byte hash, with V in {0, 1}.
func (k *KeyMaterial) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("%w: hash must be 32 bytes, got %d", ErrSigningFailed, len(hash))
	}
	sig, err := ethcrypto.Sign(hash, k.priv.ToECDSA())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return sig, nil
}

// SignPersonalMessage signs an arbitrary message with the EIP-191
// personal-message convention: the message is prefixed with
// "\x19Ethereum Signed Message:\n" plus its decimal byte length, hashed
// with Keccak-256 and signed. V is offset by 27 as external verifiers
// expect.
func (k *KeyMaterial) SignPersonalMessage(message []byte) ([]byte, error) {
	sig, err := k.Sign(HashPersonalMessage(message))
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// HashPersonalMessage returns the Keccak-256 digest of a message with
// the personal-message prefix applied.
func HashPersonalMessage(message []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(personalMessagePrefix + strconv.Itoa(len(message))))
	h.Write(message)
	return h.Sum(nil)
}
