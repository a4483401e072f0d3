package txbuilder

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/wllt-labs/wllt-core/internal/keys"
	"github.com/wllt-labs/wllt-core/internal/network"
	"github.com/wllt-labs/wllt-core/internal/units"
)

const (
	testMnemonic  = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testRecipient = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	testContract  = "0x1111111111111111111111111111111111111111"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big int literal %q", s)
	}
	return v
}

func sepolia(t *testing.T) network.Network {
	t.Helper()
	net, ok := network.ByID(network.Sepolia)
	if !ok {
		t.Fatal("sepolia missing from registry")
	}
	return net
}

func TestBuildNativeTransfer(t *testing.T) {
	gasPrice := big.NewInt(20000000000)
	balance := mustBig(t, "2000000000000000000") // 2 ETH

	tx, err := BuildNativeTransfer(sepolia(t), 7, gasPrice, testRecipient, "1.5", balance)
	if err != nil {
		t.Fatalf("BuildNativeTransfer() error: %v", err)
	}
	if tx.Nonce != 7 {
		t.Errorf("Nonce = %d, want 7", tx.Nonce)
	}
	if tx.GasLimit != NativeTransferGas {
		t.Errorf("GasLimit = %d, want %d", tx.GasLimit, NativeTransferGas)
	}
	if want := mustBig(t, "1500000000000000000"); tx.Value.Cmp(want) != 0 {
		t.Errorf("Value = %s, want %s", tx.Value, want)
	}
	if tx.To != common.HexToAddress(testRecipient) {
		t.Errorf("To = %s, want %s", tx.To, testRecipient)
	}
	if len(tx.Data) != 0 {
		t.Errorf("native transfer carries data: %x", tx.Data)
	}
}

func TestBuildNativeTransfer_TruncatesAmount(t *testing.T) {
	// 19 fractional digits: the last one must be dropped, not rounded.
	tx, err := BuildNativeTransfer(sepolia(t), 0, big.NewInt(1), testRecipient, "0.1234567890123456789", nil)
	if err != nil {
		t.Fatalf("BuildNativeTransfer() error: %v", err)
	}
	if want := mustBig(t, "123456789012345678"); tx.Value.Cmp(want) != 0 {
		t.Errorf("Value = %s, want %s", tx.Value, want)
	}
}

func TestBuildNativeTransfer_Validation(t *testing.T) {
	gasPrice := big.NewInt(1000000000)
	balance := mustBig(t, "1000000000000000000")

	tests := []struct {
		name    string
		to      string
		amount  string
		balance *big.Int
		wantErr error
	}{
		{"bad address", "not-an-address", "1", balance, ErrInvalidAddress},
		{"short address", "0x1234", "1", balance, ErrInvalidAddress},
		{"empty amount", testRecipient, "", balance, units.ErrInvalidAmount},
		{"negative amount", testRecipient, "-1", balance, units.ErrInvalidAmount},
		{"zero amount", testRecipient, "0", balance, units.ErrInvalidAmount},
		{"garbage amount", testRecipient, "1.2.3", balance, units.ErrInvalidAmount},
		{"exceeds balance", testRecipient, "2", balance, ErrInsufficientBalance},
		{"no headroom for fee", testRecipient, "1", balance, ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildNativeTransfer(sepolia(t), 0, gasPrice, tt.to, tt.amount, tt.balance)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildNativeTransfer_ExactCostPasses(t *testing.T) {
	gasPrice := big.NewInt(10)
	value := mustBig(t, "1000000000000000000")
	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(NativeTransferGas))
	balance := new(big.Int).Add(value, fee)

	if _, err := BuildNativeTransfer(sepolia(t), 0, gasPrice, testRecipient, "1", balance); err != nil {
		t.Errorf("BuildNativeTransfer() at exact cost error: %v", err)
	}
}

func TestBuildTokenTransfer(t *testing.T) {
	gasPrice := big.NewInt(1000000000)
	tokenBalance := big.NewInt(100000000)  // 100 tokens at 6 decimals
	nativeBalance := mustBig(t, "1000000000000000000")

	tx, err := BuildTokenTransfer(sepolia(t), 3, gasPrice, testContract, testRecipient, "12.5", 6, tokenBalance, nativeBalance)
	if err != nil {
		t.Fatalf("BuildTokenTransfer() error: %v", err)
	}
	if tx.To != common.HexToAddress(testContract) {
		t.Errorf("To = %s, want the token contract", tx.To)
	}
	if tx.Value.Sign() != 0 {
		t.Errorf("Value = %s, want 0", tx.Value)
	}
	if tx.GasLimit != TokenTransferGas {
		t.Errorf("GasLimit = %d, want %d", tx.GasLimit, TokenTransferGas)
	}

	if len(tx.Data) != 68 {
		t.Fatalf("Data length = %d, want 68", len(tx.Data))
	}
	if !bytes.Equal(tx.Data[:4], []byte{0xa9, 0x05, 0x9c, 0xbb}) {
		t.Errorf("selector = %x, want a9059cbb", tx.Data[:4])
	}
	wantRecipient := common.LeftPadBytes(common.HexToAddress(testRecipient).Bytes(), 32)
	if !bytes.Equal(tx.Data[4:36], wantRecipient) {
		t.Errorf("recipient arg = %x, want %x", tx.Data[4:36], wantRecipient)
	}
	wantValue := common.LeftPadBytes(big.NewInt(12500000).Bytes(), 32)
	if !bytes.Equal(tx.Data[36:], wantValue) {
		t.Errorf("value arg = %x, want %x", tx.Data[36:], wantValue)
	}
}

func TestBuildTokenTransfer_Validation(t *testing.T) {
	gasPrice := big.NewInt(1000000000)
	tokenBalance := big.NewInt(1000000)
	nativeBalance := mustBig(t, "1000000000000000000")

	tests := []struct {
		name     string
		contract string
		to       string
		amount   string
		wantErr  error
	}{
		{"bad contract", "xyz", testRecipient, "1", ErrInvalidAddress},
		{"bad recipient", testContract, "xyz", "1", ErrInvalidAddress},
		{"zero amount", testContract, testRecipient, "0", units.ErrInvalidAmount},
		{"exceeds token balance", testContract, testRecipient, "2", ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTokenTransfer(sepolia(t), 0, gasPrice, tt.contract, tt.to, tt.amount, 6, tokenBalance, nativeBalance)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildTokenTransfer_FeeExceedsNativeBalance(t *testing.T) {
	gasPrice := big.NewInt(1000000000)
	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(TokenTransferGas))
	short := new(big.Int).Sub(fee, big.NewInt(1))

	_, err := BuildTokenTransfer(sepolia(t), 0, gasPrice, testContract, testRecipient, "1", 6, big.NewInt(10000000), short)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("error = %v, want ErrInsufficientBalance", err)
	}
}

func TestSign(t *testing.T) {
	key, err := keys.Derive(testMnemonic, "")
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	net := sepolia(t)

	unsigned, err := BuildNativeTransfer(net, 1, big.NewInt(20000000000), testRecipient, "0.01", nil)
	if err != nil {
		t.Fatalf("BuildNativeTransfer() error: %v", err)
	}
	signed, err := unsigned.Sign(key)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	if signed.Type() != types.LegacyTxType {
		t.Errorf("Type() = %d, want legacy", signed.Type())
	}
	if signed.ChainId().Uint64() != net.ChainID {
		t.Errorf("ChainId() = %s, want %d", signed.ChainId(), net.ChainID)
	}

	signer := types.NewEIP155Signer(new(big.Int).SetUint64(net.ChainID))
	sender, err := types.Sender(signer, signed)
	if err != nil {
		t.Fatalf("Sender() error: %v", err)
	}
	if sender != key.Address() {
		t.Errorf("recovered sender = %s, want %s", sender, key.Address())
	}
}
