// Package dispatch routes remote signing requests (the JSON-RPC
// methods a connected dapp may send) to the wallet.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/wllt-labs/wllt-core/internal/engine"
	wlog "github.com/wllt-labs/wllt-core/internal/log"
)

var (
	// ErrUnsupportedMethod is returned for request methods the wallet
	// does not implement.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrUnknownAccount is returned when a request names an account
	// other than the wallet's.
	ErrUnknownAccount = errors.New("unknown account")

	// ErrBadParams is returned when request parameters cannot be
	// decoded.
	ErrBadParams = errors.New("bad params")
)

// Signer is the wallet surface the dispatcher needs. The dispatcher
// never touches key material itself.
type Signer interface {
	Address() (common.Address, error)
	SendRemoteTransaction(ctx context.Context, chainID uint64, p engine.RemoteTxParams) (string, error)
	SignRemoteTransaction(ctx context.Context, chainID uint64, p engine.RemoteTxParams) (string, error)
	PersonalSign(message []byte) (string, error)
}

// Request is one remote signing request.
type Request struct {
	Method  string
	ChainID uint64
	Params  json.RawMessage
}

// txParam is the transaction object dapps send, with hex-encoded
// quantities.
type txParam struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Value    *hexutil.Big    `json:"value"`
	Gas      *hexutil.Uint64 `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Nonce    *hexutil.Uint64 `json:"nonce"`
	Data     hexutil.Bytes   `json:"data"`
}

// Dispatcher validates and routes requests to the signer.
type Dispatcher struct {
	signer Signer
	log    zerolog.Logger
}

// New creates a dispatcher over the signer.
func New(signer Signer) *Dispatcher {
	return &Dispatcher{signer: signer, log: wlog.Dispatch}
}

// Handle executes one request and returns its result: a hash or hex
// string for transaction and signing methods, a list of addresses for
// eth_accounts.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (interface{}, error) {
	d.log.Debug().Str("method", req.Method).Uint64("chain_id", req.ChainID).Msg("handling request")

	switch req.Method {
	case "eth_accounts", "eth_requestAccounts":
		addr, err := d.signer.Address()
		if err != nil {
			return nil, err
		}
		return []string{addr.Hex()}, nil

	case "eth_sendTransaction":
		p, err := d.decodeTxParams(req.Params)
		if err != nil {
			return nil, err
		}
		return d.signer.SendRemoteTransaction(ctx, req.ChainID, p)

	case "eth_signTransaction":
		p, err := d.decodeTxParams(req.Params)
		if err != nil {
			return nil, err
		}
		return d.signer.SignRemoteTransaction(ctx, req.ChainID, p)

	case "personal_sign":
		// Params are [data, address].
		message, account, err := decodeSignParams(req.Params, 0, 1)
		if err != nil {
			return nil, err
		}
		if err := d.checkAccount(account); err != nil {
			return nil, err
		}
		return d.signer.PersonalSign(message)

	case "eth_sign":
		// Params are [address, data], the reverse of personal_sign.
		message, account, err := decodeSignParams(req.Params, 1, 0)
		if err != nil {
			return nil, err
		}
		if err := d.checkAccount(account); err != nil {
			return nil, err
		}
		return d.signer.PersonalSign(message)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}
}

// decodeTxParams unpacks the single transaction object parameter and
// checks the from account.
func (d *Dispatcher) decodeTxParams(raw json.RawMessage) (engine.RemoteTxParams, error) {
	var params []txParam
	if err := json.Unmarshal(raw, &params); err != nil || len(params) == 0 {
		return engine.RemoteTxParams{}, fmt.Errorf("%w: want a transaction object", ErrBadParams)
	}
	tx := params[0]

	if tx.From != "" {
		if err := d.checkAccount(tx.From); err != nil {
			return engine.RemoteTxParams{}, err
		}
	}

	p := engine.RemoteTxParams{
		To:   tx.To,
		Data: tx.Data,
	}
	if tx.Value != nil {
		p.Value = (*big.Int)(tx.Value)
	}
	if tx.GasPrice != nil {
		p.GasPrice = (*big.Int)(tx.GasPrice)
	}
	if tx.Gas != nil {
		p.GasLimit = uint64(*tx.Gas)
	}
	if tx.Nonce != nil {
		n := uint64(*tx.Nonce)
		p.Nonce = &n
	}
	return p, nil
}

// decodeSignParams unpacks a two-element signing parameter list, with
// the positions of the message and the account given by the caller.
func decodeSignParams(raw json.RawMessage, msgIdx, acctIdx int) ([]byte, string, error) {
	var params []string
	if err := json.Unmarshal(raw, &params); err != nil || len(params) < 2 {
		return nil, "", fmt.Errorf("%w: want [data, address] or [address, data]", ErrBadParams)
	}
	return decodeMessage(params[msgIdx]), params[acctIdx], nil
}

// decodeMessage interprets a message parameter: hex when prefixed with
// 0x, raw UTF-8 bytes otherwise.
func decodeMessage(s string) []byte {
	if strings.HasPrefix(s, "0x") {
		if b, err := hexutil.Decode(s); err == nil {
			return b
		}
	}
	return []byte(s)
}

// checkAccount verifies an account parameter against the wallet
// address.
func (d *Dispatcher) checkAccount(account string) error {
	addr, err := d.signer.Address()
	if err != nil {
		return err
	}
	if !strings.EqualFold(account, addr.Hex()) {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, account)
	}
	return nil
}
