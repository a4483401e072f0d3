package chainio

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wllt-labs/wllt-core/internal/network"
)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// stubNode serves canned JSON-RPC results keyed by method name and
// counts the requests it receives.
func stubNode(t *testing.T, results map[string]string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, ok := results[req.Method]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func rpcNetwork(urls ...string) network.Network {
	return network.Network{
		ID:      network.Ethereum,
		ChainID: 1,
		RPCURLs: urls,
	}
}

func TestNativeBalance(t *testing.T) {
	srv, _ := stubNode(t, map[string]string{
		"eth_getBalance": "0xde0b6b3a7640000", // 1 ETH in wei
	})

	c := NewRPCClient(time.Second)
	got, err := c.NativeBalance(context.Background(), rpcNetwork(srv.URL), common.HexToAddress(testAddress))
	if err != nil {
		t.Fatalf("NativeBalance() error: %v", err)
	}
	want := big.NewInt(1000000000000000000)
	if got.Cmp(want) != 0 {
		t.Errorf("NativeBalance() = %s, want %s", got, want)
	}
}

func TestGasPrice(t *testing.T) {
	srv, _ := stubNode(t, map[string]string{
		"eth_gasPrice": "0x4a817c800", // 20 gwei
	})

	c := NewRPCClient(time.Second)
	got, err := c.GasPrice(context.Background(), rpcNetwork(srv.URL))
	if err != nil {
		t.Fatalf("GasPrice() error: %v", err)
	}
	if got.Cmp(big.NewInt(20000000000)) != 0 {
		t.Errorf("GasPrice() = %s, want 20000000000", got)
	}
}

func TestPendingNonce(t *testing.T) {
	srv, _ := stubNode(t, map[string]string{
		"eth_getTransactionCount": "0x2a",
	})

	c := NewRPCClient(time.Second)
	got, err := c.PendingNonce(context.Background(), rpcNetwork(srv.URL), common.HexToAddress(testAddress))
	if err != nil {
		t.Fatalf("PendingNonce() error: %v", err)
	}
	if got != 42 {
		t.Errorf("PendingNonce() = %d, want 42", got)
	}
}

func TestRPCFallback(t *testing.T) {
	// The first two endpoints are unreachable or broken; the third
	// answers. The read must succeed with the third endpoint's result.
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	good, _ := stubNode(t, map[string]string{
		"eth_getBalance": "0x5",
	})

	c := NewRPCClient(time.Second)
	net := rpcNetwork("http://127.0.0.1:1", broken.URL, good.URL)
	got, err := c.NativeBalance(context.Background(), net, common.HexToAddress(testAddress))
	if err != nil {
		t.Fatalf("NativeBalance() error: %v", err)
	}
	if got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("NativeBalance() = %s, want 5", got)
	}
}

func TestRPCAllEndpointsFail(t *testing.T) {
	c := NewRPCClient(time.Second)
	net := rpcNetwork("http://127.0.0.1:1", "http://127.0.0.1:2")
	_, err := c.NativeBalance(context.Background(), net, common.HexToAddress(testAddress))
	if !errors.Is(err, ErrNoReachableEndpoint) {
		t.Errorf("error = %v, want ErrNoReachableEndpoint", err)
	}
}

func TestRPCNoEndpoints(t *testing.T) {
	c := NewRPCClient(time.Second)
	_, err := c.GasPrice(context.Background(), rpcNetwork())
	if !errors.Is(err, ErrNoReachableEndpoint) {
		t.Errorf("error = %v, want ErrNoReachableEndpoint", err)
	}
}

func TestSendTransaction_StopsAtFirstAccept(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	tx, err := types.SignNewTx(key, types.NewEIP155Signer(big.NewInt(1)), &types.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(20000000000),
		Gas:      21000,
		To:       &common.Address{},
		Value:    big.NewInt(1),
	})
	if err != nil {
		t.Fatalf("SignNewTx() error: %v", err)
	}

	first, firstCalls := stubNode(t, map[string]string{
		"eth_sendRawTransaction": tx.Hash().Hex(),
	})
	second, secondCalls := stubNode(t, map[string]string{
		"eth_sendRawTransaction": tx.Hash().Hex(),
	})

	c := NewRPCClient(time.Second)
	hash, err := c.SendTransaction(context.Background(), rpcNetwork(first.URL, second.URL), tx)
	if err != nil {
		t.Fatalf("SendTransaction() error: %v", err)
	}
	if hash != tx.Hash() {
		t.Errorf("SendTransaction() hash = %s, want %s", hash, tx.Hash())
	}
	if firstCalls.Load() == 0 {
		t.Error("first endpoint was never called")
	}
	if secondCalls.Load() != 0 {
		t.Error("transaction was resubmitted to a second endpoint after acceptance")
	}
}
