package keys

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// BIP-44 derivation path constants for the wallet's single account:
// m/44'/60'/0'/0/0
const (
	purposeBIP44 = bip32.FirstHardenedChild + 44
	coinTypeEth  = bip32.FirstHardenedChild + 60
	accountZero  = bip32.FirstHardenedChild + 0
	changeIndex  = 0
	addressIndex = 0
)

// ErrDerivation is returned when key material cannot be derived from a
// mnemonic phrase.
var ErrDerivation = errors.New("key derivation failed")

// KeyMaterial holds the derived signing key and address for the active
// wallet. It is immutable after derivation and safe for concurrent
// read-only use.
type KeyMaterial struct {
	priv    *secp256k1.PrivateKey
	address common.Address
}

// Derive deterministically derives key material from a mnemonic phrase
// along m/44'/60'/0'/0/0. The phrase is checksum-validated first; an
// invalid phrase never silently derives a key.
func Derive(phrase, passphrase string) (*KeyMaterial, error) {
	if !bip39.IsMnemonicValid(phrase) {
		return nil, fmt.Errorf("%w: invalid mnemonic", ErrDerivation)
	}

	seed, err := bip39.NewSeedWithErrorChecking(phrase, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
	}

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivation, err)
	}

	key := master
	for _, idx := range []uint32{purposeBIP44, coinTypeEth, accountZero, changeIndex, addressIndex} {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: derive child %d: %v", ErrDerivation, idx, err)
		}
	}

	priv := secp256k1.PrivKeyFromBytes(privateKeyBytes(key))
	address := ethcrypto.PubkeyToAddress(priv.ToECDSA().PublicKey)

	return &KeyMaterial{priv: priv, address: address}, nil
}

// privateKeyBytes returns the raw 32-byte private key scalar.
// bip32 private keys carry a leading 0x00 pad byte.
func privateKeyBytes(key *bip32.Key) []byte {
	raw := key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// Address returns the derived account address.
func (k *KeyMaterial) Address() common.Address {
	return k.address
}

// Zero securely scrubs the private key memory. The KeyMaterial must not
// be used afterwards.
func (k *KeyMaterial) Zero() {
	k.priv.Zero()
}
