package chainio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	wlog "github.com/wllt-labs/wllt-core/internal/log"
	"github.com/wllt-labs/wllt-core/internal/network"
)

const (
	defaultExplorerTimeout = 15 * time.Second
	historyPageSize        = 50
)

// TxRecord is one raw transaction row from an explorer account history.
type TxRecord struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	TimeStamp   string `json:"timeStamp"`
	IsError     string `json:"isError"`
	GasUsed     string `json:"gasUsed"`
	GasPrice    string `json:"gasPrice"`
	BlockNumber string `json:"blockNumber"`
}

// TokenTransfer is one raw token transfer event row from an explorer.
type TokenTransfer struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TimeStamp       string `json:"timeStamp"`
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	BlockNumber     string `json:"blockNumber"`
}

// envelope is the etherscan-style response wrapper. Status "1" means
// the result payload is usable; anything else is a source-side failure
// and the caller moves on to the next explorer.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// ExplorerClient queries account history from explorer APIs with
// ordered source failover.
type ExplorerClient struct {
	http    *http.Client
	apiKeys map[network.ID]string
	log     zerolog.Logger
}

// NewExplorerClient creates an explorer client. apiKeys maps network id
// to an optional API key; keys are only attached to endpoints that
// accept them.
func NewExplorerClient(timeout time.Duration, apiKeys map[network.ID]string) *ExplorerClient {
	if timeout <= 0 {
		timeout = defaultExplorerTimeout
	}
	return &ExplorerClient{
		http:    &http.Client{Timeout: timeout},
		apiKeys: apiKeys,
		log:     wlog.Explorer,
	}
}

// TransactionList fetches the most recent transactions involving
// address, newest first, limited to one page.
func (c *ExplorerClient) TransactionList(ctx context.Context, net network.Network, address string) ([]TxRecord, error) {
	extra := url.Values{
		"page":   {"1"},
		"offset": {strconv.Itoa(historyPageSize)},
	}
	var out []TxRecord
	if err := c.fetch(ctx, net, "txlist", address, extra, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TokenTransferList fetches the complete token transfer event history
// for address, newest first.
func (c *ExplorerClient) TokenTransferList(ctx context.Context, net network.Network, address string) ([]TokenTransfer, error) {
	var out []TokenTransfer
	if err := c.fetch(ctx, net, "tokentx", address, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fetch runs one account-module query against each explorer source in
// order until one returns a usable envelope, decoding the result into
// out.
func (c *ExplorerClient) fetch(ctx context.Context, net network.Network, action, address string, extra url.Values, out interface{}) error {
	var lastErr error
	for _, ep := range net.ExplorerAPIs {
		err := c.fetchOne(ctx, net, ep, action, address, extra, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		c.log.Warn().Str("network", string(net.ID)).Str("endpoint", ep.BaseURL).Str("action", action).Err(err).Msg("explorer source failed, trying next")
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNoReachableEndpoint, net.ID, action, lastErr)
	}
	return fmt.Errorf("%w: %s %s", ErrNoReachableEndpoint, net.ID, action)
}

func (c *ExplorerClient) fetchOne(ctx context.Context, net network.Network, ep network.ExplorerEndpoint, action, address string, extra url.Values, out interface{}) error {
	u, err := url.Parse(ep.BaseURL)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}

	q := url.Values{
		"module":     {"account"},
		"action":     {action},
		"address":    {address},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"sort":       {"desc"},
	}
	for k, vs := range extra {
		q[k] = vs
	}
	if ep.WantsChainID {
		q.Set("chainid", strconv.FormatUint(net.ChainID, 10))
	}
	if ep.AcceptsKey {
		if key := c.apiKeys[net.ID]; key != "" {
			q.Set("apikey", key)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Status != "1" {
		return fmt.Errorf("source error: %s", env.Message)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
