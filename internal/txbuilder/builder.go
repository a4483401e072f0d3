// Package txbuilder assembles, validates and signs legacy transactions
// for the supported chains.
package txbuilder

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/wllt-labs/wllt-core/internal/keys"
	"github.com/wllt-labs/wllt-core/internal/network"
	"github.com/wllt-labs/wllt-core/internal/units"
)

// Gas limits. Native transfers cost exactly 21000. Token transfers vary
// by contract, so a fixed ceiling is used instead of estimation; 90000
// covers standard transfer implementations.
const (
	NativeTransferGas uint64 = 21000
	TokenTransferGas  uint64 = 90000
)

// transferSelector is the 4-byte function selector of transfer(address,uint256).
var transferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}

var (
	// ErrInvalidAddress is returned when a recipient or contract
	// address is not a valid hex address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInsufficientBalance is returned when the sender cannot cover
	// the transfer amount plus the maximum fee.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// UnsignedTx is a fully resolved transaction ready for signing.
type UnsignedTx struct {
	Network  network.Network
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       common.Address
	Value    *big.Int
	Data     []byte
}

// BuildNativeTransfer validates and assembles a native-coin transfer.
// amount is a decimal string in whole coins; digits beyond 18 decimal
// places are truncated, never rounded. balance, when non-nil, is
// checked against amount plus the maximum fee.
func BuildNativeTransfer(net network.Network, nonce uint64, gasPrice *big.Int, to, amount string, balance *big.Int) (*UnsignedTx, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	value, err := units.Parse(amount, units.NativeDecimals)
	if err != nil {
		return nil, err
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", units.ErrInvalidAmount)
	}

	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(NativeTransferGas))
	cost := new(big.Int).Add(value, fee)
	if balance != nil && cost.Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, cost, balance)
	}

	return &UnsignedTx{
		Network:  net,
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: NativeTransferGas,
		To:       common.HexToAddress(to),
		Value:    value,
	}, nil
}

// BuildTokenTransfer validates and assembles an ERC-20 transfer call.
// amount is a decimal string in whole tokens interpreted with the
// token's decimals, truncated past that precision. tokenBalance guards
// the transfer amount; nativeBalance guards the fee.
func BuildTokenTransfer(net network.Network, nonce uint64, gasPrice *big.Int, contract, to, amount string, decimals int, tokenBalance, nativeBalance *big.Int) (*UnsignedTx, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("%w: contract %q", ErrInvalidAddress, contract)
	}
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	value, err := units.Parse(amount, decimals)
	if err != nil {
		return nil, err
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", units.ErrInvalidAmount)
	}

	if tokenBalance != nil && value.Cmp(tokenBalance) > 0 {
		return nil, fmt.Errorf("%w: need %s tokens, have %s", ErrInsufficientBalance, value, tokenBalance)
	}
	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(TokenTransferGas))
	if nativeBalance != nil && fee.Cmp(nativeBalance) > 0 {
		return nil, fmt.Errorf("%w: fee %s exceeds native balance %s", ErrInsufficientBalance, fee, nativeBalance)
	}

	recipient := common.HexToAddress(to)
	data := make([]byte, 0, 4+32+32)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(recipient.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(value.Bytes(), 32)...)

	return &UnsignedTx{
		Network:  net,
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: TokenTransferGas,
		To:       common.HexToAddress(contract),
		Value:    big.NewInt(0),
		Data:     data,
	}, nil
}

// Transaction returns the unsigned legacy transaction.
func (u *UnsignedTx) Transaction() *types.Transaction {
	to := u.To
	return types.NewTx(&types.LegacyTx{
		Nonce:    u.Nonce,
		GasPrice: u.GasPrice,
		Gas:      u.GasLimit,
		To:       &to,
		Value:    u.Value,
		Data:     u.Data,
	})
}

// Sign produces the replay-protected signed transaction for the
// unsigned transaction's chain.
func (u *UnsignedTx) Sign(key *keys.KeyMaterial) (*types.Transaction, error) {
	tx := u.Transaction()
	signer := types.NewEIP155Signer(new(big.Int).SetUint64(u.Network.ChainID))
	hash := signer.Hash(tx)
	sig, err := key.Sign(hash[:])
	if err != nil {
		return nil, err
	}
	signed, err := tx.WithSignature(signer, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keys.ErrSigningFailed, err)
	}
	return signed, nil
}
