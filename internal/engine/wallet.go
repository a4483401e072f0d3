package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/wllt-labs/wllt-core/internal/chainio"
	"github.com/wllt-labs/wllt-core/internal/keys"
	wlog "github.com/wllt-labs/wllt-core/internal/log"
	"github.com/wllt-labs/wllt-core/internal/network"
	"github.com/wllt-labs/wllt-core/internal/txbuilder"
	"github.com/wllt-labs/wllt-core/internal/vault"
)

var (
	// ErrNoWallet is returned when an operation needs a wallet and none
	// has been created or imported.
	ErrNoWallet = errors.New("no wallet")

	// ErrWalletExists is returned when creating or importing over an
	// existing wallet without deleting it first.
	ErrWalletExists = errors.New("wallet already exists")
)

// Wallet owns the key material and the synced chain view. All methods
// are safe for concurrent use.
type Wallet struct {
	vault    *vault.Vault
	rpc      *chainio.RPCClient
	explorer *chainio.ExplorerClient
	log      zerolog.Logger

	// nets overrides the network registry when non-nil, so tests can
	// point the wallet at stub endpoints.
	nets []network.Network

	mu         sync.Mutex
	key        *keys.KeyMaterial
	mode       network.Mode
	gen        uint64 // bumped on mode switch and delete; stale sync results are discarded
	syncing    bool
	dirty      bool
	cancelPass context.CancelFunc

	balances []Balance
	tokens   []Token
	history  []Transaction
	lastSync time.Time
}

// New builds a wallet over the vault and chain clients, restoring the
// stored seed phrase and network mode if present.
func New(v *vault.Vault, rpc *chainio.RPCClient, explorer *chainio.ExplorerClient) (*Wallet, error) {
	w := &Wallet{
		vault:    v,
		rpc:      rpc,
		explorer: explorer,
		log:      wlog.Wallet,
		mode:     network.ModeMainnet,
	}

	if stored, ok, err := v.Setting(vault.KeyNetworkMode); err != nil {
		return nil, fmt.Errorf("load network mode: %w", err)
	} else if ok {
		w.mode = network.ParseMode(stored)
	}

	phrase, ok, err := v.Secret(vault.KeySeedPhrase)
	if err != nil {
		return nil, fmt.Errorf("load seed phrase: %w", err)
	}
	if ok {
		key, err := keys.Derive(string(phrase), "")
		if err != nil {
			return nil, err
		}
		w.key = key
		w.log.Info().Str("address", key.Address().Hex()).Msg("wallet restored")
	}
	return w, nil
}

// Create generates a fresh mnemonic, stores it encrypted and derives
// the key. The mnemonic is returned once for the user to back up.
func (w *Wallet) Create() (string, error) {
	phrase, err := keys.GenerateMnemonic(keys.DefaultEntropyBits)
	if err != nil {
		return "", err
	}
	if err := w.adopt(phrase); err != nil {
		return "", err
	}
	return phrase, nil
}

// Import validates and adopts an existing mnemonic.
func (w *Wallet) Import(phrase string) error {
	phrase = strings.TrimSpace(phrase)
	return w.adopt(phrase)
}

func (w *Wallet) adopt(phrase string) error {
	key, err := keys.Derive(phrase, "")
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key != nil {
		key.Zero()
		return ErrWalletExists
	}
	if err := w.vault.SetSecret(vault.KeySeedPhrase, []byte(phrase)); err != nil {
		key.Zero()
		return err
	}
	w.key = key
	w.log.Info().Str("address", key.Address().Hex()).Msg("wallet ready")
	return nil
}

// Delete removes the stored seed phrase, scrubs the key and clears the
// synced view. An in-flight sync pass is cancelled and its results
// discarded.
func (w *Wallet) Delete() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.vault.DeleteAllSecrets(); err != nil {
		return err
	}
	if w.key != nil {
		w.key.Zero()
		w.key = nil
	}
	w.gen++
	if w.cancelPass != nil {
		w.cancelPass()
	}
	w.balances = nil
	w.tokens = nil
	w.history = nil
	w.lastSync = time.Time{}
	w.log.Info().Msg("wallet deleted")
	return nil
}

// HasWallet reports whether key material is loaded.
func (w *Wallet) HasWallet() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.key != nil
}

// Address returns the wallet's account address.
func (w *Wallet) Address() (common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key == nil {
		return common.Address{}, ErrNoWallet
	}
	return w.key.Address(), nil
}

// SeedPhrase reveals the stored mnemonic for backup.
func (w *Wallet) SeedPhrase() (string, error) {
	phrase, ok, err := w.vault.Secret(vault.KeySeedPhrase)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoWallet
	}
	return string(phrase), nil
}

// NetworkMode returns the active mode.
func (w *Wallet) NetworkMode() network.Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// SetNetworkMode switches between mainnet and testnet. The mode is
// persisted, any in-flight sync pass is cancelled and its results are
// discarded, and the synced view is cleared until the next sync.
func (w *Wallet) SetNetworkMode(mode network.Mode) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if mode == w.mode {
		return nil
	}
	if err := w.vault.SetSetting(vault.KeyNetworkMode, string(mode)); err != nil {
		return err
	}
	w.mode = mode
	w.gen++
	if w.cancelPass != nil {
		w.cancelPass()
	}
	w.dirty = true
	w.balances = nil
	w.tokens = nil
	w.history = nil
	w.log.Info().Str("mode", string(mode)).Msg("network mode switched")
	return nil
}

// Balances returns the synced native balances, one per active network.
func (w *Wallet) Balances() []Balance {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Balance, len(w.balances))
	copy(out, w.balances)
	return out
}

// Tokens returns the synced token holdings.
func (w *Wallet) Tokens() []Token {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Token, len(w.tokens))
	copy(out, w.tokens)
	return out
}

// Transactions returns the synced history, newest first.
func (w *Wallet) Transactions() []Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Transaction, len(w.history))
	copy(out, w.history)
	return out
}

// LastSync returns when the view was last refreshed, zero if never.
func (w *Wallet) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

// SetPIN stores the wallet PIN.
func (w *Wallet) SetPIN(pin string) error {
	return w.vault.SetPIN(pin)
}

// HasPIN reports whether a PIN is set.
func (w *Wallet) HasPIN() (bool, error) {
	return w.vault.HasPIN()
}

// VerifyPIN checks a PIN attempt against the stored PIN.
func (w *Wallet) VerifyPIN(pin string) (bool, error) {
	return w.vault.VerifyPIN(pin)
}

// FaucetURL returns the faucet link for a network, empty when the
// network has none.
func (w *Wallet) FaucetURL(id network.ID) string {
	net, ok := w.networkByID(id)
	if !ok {
		return ""
	}
	return net.FaucetURL
}

// SendNative builds, signs and broadcasts a native-coin transfer,
// returning the transaction hash.
func (w *Wallet) SendNative(ctx context.Context, id network.ID, to, amount string) (string, error) {
	key, err := w.signerKey()
	if err != nil {
		return "", err
	}
	net, ok := w.networkByID(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", network.ErrUnsupportedChain, id)
	}

	gasPrice, err := w.rpc.GasPrice(ctx, net)
	if err != nil {
		return "", err
	}
	nonce, err := w.rpc.PendingNonce(ctx, net, key.Address())
	if err != nil {
		return "", err
	}
	balance, err := w.rpc.NativeBalance(ctx, net, key.Address())
	if err != nil {
		return "", err
	}

	unsigned, err := txbuilder.BuildNativeTransfer(net, nonce, gasPrice, to, amount, balance)
	if err != nil {
		return "", err
	}
	signed, err := unsigned.Sign(key)
	if err != nil {
		return "", err
	}
	hash, err := w.rpc.SendTransaction(ctx, net, signed)
	if err != nil {
		return "", err
	}
	w.log.Info().Str("network", string(id)).Str("hash", hash.Hex()).Msg("native transfer sent")
	return hash.Hex(), nil
}

// SendToken builds, signs and broadcasts an ERC-20 transfer. The token
// must appear in the synced holdings; its decimals and balance come
// from there.
func (w *Wallet) SendToken(ctx context.Context, id network.ID, contract, to, amount string) (string, error) {
	key, err := w.signerKey()
	if err != nil {
		return "", err
	}
	net, ok := w.networkByID(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", network.ErrUnsupportedChain, id)
	}

	held, ok := w.heldToken(id, contract)
	if !ok {
		return "", fmt.Errorf("%w: token %s not held", txbuilder.ErrInsufficientBalance, contract)
	}

	gasPrice, err := w.rpc.GasPrice(ctx, net)
	if err != nil {
		return "", err
	}
	nonce, err := w.rpc.PendingNonce(ctx, net, key.Address())
	if err != nil {
		return "", err
	}
	nativeBalance, err := w.rpc.NativeBalance(ctx, net, key.Address())
	if err != nil {
		return "", err
	}

	unsigned, err := txbuilder.BuildTokenTransfer(net, nonce, gasPrice, contract, to, amount, held.Decimals, held.Raw, nativeBalance)
	if err != nil {
		return "", err
	}
	signed, err := unsigned.Sign(key)
	if err != nil {
		return "", err
	}
	hash, err := w.rpc.SendTransaction(ctx, net, signed)
	if err != nil {
		return "", err
	}
	w.log.Info().Str("network", string(id)).Str("token", held.Symbol).Str("hash", hash.Hex()).Msg("token transfer sent")
	return hash.Hex(), nil
}

// RemoteTxParams are the transaction fields supplied by an external
// signing request. Nil or zero fields are resolved from the chain.
type RemoteTxParams struct {
	To       string
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    *uint64
}

// SignRemoteTransaction signs a transaction described by an external
// request against the chain id's network and returns the raw signed
// transaction as a hex string, without broadcasting it.
func (w *Wallet) SignRemoteTransaction(ctx context.Context, chainID uint64, p RemoteTxParams) (string, error) {
	signed, _, err := w.buildAndSignRemote(ctx, chainID, p)
	if err != nil {
		return "", err
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("%w: %v", keys.ErrSigningFailed, err)
	}
	return hexutil.Encode(raw), nil
}

// SendRemoteTransaction signs and broadcasts a transaction described by
// an external request, returning the transaction hash.
func (w *Wallet) SendRemoteTransaction(ctx context.Context, chainID uint64, p RemoteTxParams) (string, error) {
	signed, net, err := w.buildAndSignRemote(ctx, chainID, p)
	if err != nil {
		return "", err
	}
	hash, err := w.rpc.SendTransaction(ctx, net, signed)
	if err != nil {
		return "", err
	}
	w.log.Info().Str("network", string(net.ID)).Str("hash", hash.Hex()).Msg("remote transaction sent")
	return hash.Hex(), nil
}

// PersonalSign signs a message with the personal-message convention and
// returns the signature as a hex string.
func (w *Wallet) PersonalSign(message []byte) (string, error) {
	key, err := w.signerKey()
	if err != nil {
		return "", err
	}
	sig, err := key.SignPersonalMessage(message)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

func (w *Wallet) buildAndSignRemote(ctx context.Context, chainID uint64, p RemoteTxParams) (signed *types.Transaction, net network.Network, err error) {
	key, err := w.signerKey()
	if err != nil {
		return nil, network.Network{}, err
	}
	net, ok := w.networkByChainID(chainID)
	if !ok {
		return nil, network.Network{}, fmt.Errorf("%w: chain id %d", network.ErrUnsupportedChain, chainID)
	}
	if !common.IsHexAddress(p.To) {
		return nil, network.Network{}, fmt.Errorf("%w: %q", txbuilder.ErrInvalidAddress, p.To)
	}

	gasPrice := p.GasPrice
	if gasPrice == nil {
		gasPrice, err = w.rpc.GasPrice(ctx, net)
		if err != nil {
			return nil, network.Network{}, err
		}
	}
	var nonce uint64
	if p.Nonce != nil {
		nonce = *p.Nonce
	} else {
		nonce, err = w.rpc.PendingNonce(ctx, net, key.Address())
		if err != nil {
			return nil, network.Network{}, err
		}
	}
	gasLimit := p.GasLimit
	if gasLimit == 0 {
		if len(p.Data) == 0 {
			gasLimit = txbuilder.NativeTransferGas
		} else {
			gasLimit = txbuilder.TokenTransferGas
		}
	}
	value := p.Value
	if value == nil {
		value = new(big.Int)
	}

	unsigned := &txbuilder.UnsignedTx{
		Network:  net,
		Nonce:    nonce,
		GasPrice: gasPrice,
		GasLimit: gasLimit,
		To:       common.HexToAddress(p.To),
		Value:    value,
		Data:     p.Data,
	}
	tx, err := unsigned.Sign(key)
	if err != nil {
		return nil, network.Network{}, err
	}
	return tx, net, nil
}

// allNetworks returns the registry, or the test override.
func (w *Wallet) allNetworks() []network.Network {
	if w.nets != nil {
		return w.nets
	}
	return network.All()
}

// networkByID resolves a network by logical id.
func (w *Wallet) networkByID(id network.ID) (network.Network, bool) {
	for _, n := range w.allNetworks() {
		if n.ID == id {
			return n, true
		}
	}
	return network.Network{}, false
}

// networkByChainID resolves a network by chain id.
func (w *Wallet) networkByChainID(chainID uint64) (network.Network, bool) {
	for _, n := range w.allNetworks() {
		if n.ChainID == chainID {
			return n, true
		}
	}
	return network.Network{}, false
}

// activeNetworks returns the networks of one mode, in registry order.
func (w *Wallet) activeNetworks(mode network.Mode) []network.Network {
	var out []network.Network
	for _, n := range w.allNetworks() {
		if n.Mode == mode {
			out = append(out, n)
		}
	}
	return out
}

// signerKey returns the key material or ErrNoWallet.
func (w *Wallet) signerKey() (*keys.KeyMaterial, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.key == nil {
		return nil, ErrNoWallet
	}
	return w.key, nil
}

// heldToken finds a synced token holding by contract address.
func (w *Wallet) heldToken(id network.ID, contract string) (Token, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, tok := range w.tokens {
		if tok.Network == id && strings.EqualFold(tok.Contract, contract) {
			return tok, true
		}
	}
	return Token{}, false
}
