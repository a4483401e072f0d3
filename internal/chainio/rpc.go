// Package chainio resolves logical chain reads and writes against each
// network's ranked endpoint lists: node RPC on one side, explorer APIs
// on the other. Endpoints are tried in registry order and any transport
// or source failure falls through to the next one.
package chainio

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	wlog "github.com/wllt-labs/wllt-core/internal/log"
	"github.com/wllt-labs/wllt-core/internal/network"
)

const defaultRPCTimeout = 10 * time.Second

// RPCClient issues JSON-RPC calls with ordered endpoint failover.
type RPCClient struct {
	timeout time.Duration
	log     zerolog.Logger
}

// NewRPCClient creates an RPC client with the given per-call timeout.
func NewRPCClient(timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = defaultRPCTimeout
	}
	return &RPCClient{timeout: timeout, log: wlog.RPC}
}

// withEach runs call against each of the network's RPC endpoints in
// order until one succeeds. Read calls are idempotent, so retrying
// across the full list is safe.
func (c *RPCClient) withEach(ctx context.Context, net network.Network, call func(context.Context, *ethclient.Client) error) error {
	var lastErr error
	for _, rawurl := range net.RPCURLs {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		client, err := ethclient.DialContext(callCtx, rawurl)
		if err == nil {
			err = call(callCtx, client)
			client.Close()
		}
		cancel()

		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		c.log.Warn().Str("network", string(net.ID)).Str("endpoint", rawurl).Err(err).Msg("rpc endpoint failed, trying next")
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %s rpc: %v", ErrNoReachableEndpoint, net.ID, lastErr)
	}
	return fmt.Errorf("%w: %s rpc", ErrNoReachableEndpoint, net.ID)
}

// NativeBalance fetches the latest native-coin balance in smallest
// units.
func (c *RPCClient) NativeBalance(ctx context.Context, net network.Network, addr common.Address) (*big.Int, error) {
	var balance *big.Int
	err := c.withEach(ctx, net, func(ctx context.Context, client *ethclient.Client) error {
		b, err := client.BalanceAt(ctx, addr, nil)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// GasPrice fetches the current suggested gas price.
func (c *RPCClient) GasPrice(ctx context.Context, net network.Network) (*big.Int, error) {
	var price *big.Int
	err := c.withEach(ctx, net, func(ctx context.Context, client *ethclient.Client) error {
		p, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return price, nil
}

// PendingNonce fetches the account's next nonce including pending
// transactions.
func (c *RPCClient) PendingNonce(ctx context.Context, net network.Network, addr common.Address) (uint64, error) {
	var nonce uint64
	err := c.withEach(ctx, net, func(ctx context.Context, client *ethclient.Client) error {
		n, err := client.PendingNonceAt(ctx, addr)
		if err != nil {
			return err
		}
		nonce = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return nonce, nil
}

// SendTransaction broadcasts a signed transaction. The loop stops at
// the first endpoint that accepts the submission: once accepted the
// transaction is considered sent and must not be resubmitted elsewhere.
func (c *RPCClient) SendTransaction(ctx context.Context, net network.Network, tx *types.Transaction) (common.Hash, error) {
	err := c.withEach(ctx, net, func(ctx context.Context, client *ethclient.Client) error {
		return client.SendTransaction(ctx, tx)
	})
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}
