package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wllt-labs/wllt-core/internal/chainio"
	wlog "github.com/wllt-labs/wllt-core/internal/log"
	"github.com/wllt-labs/wllt-core/internal/network"
	"github.com/wllt-labs/wllt-core/internal/units"
)

// maxConcurrentFetches bounds the endpoint fan-out of one sync pass.
const maxConcurrentFetches = 8

// snapshot is the result of one sync pass.
type snapshot struct {
	balances []Balance
	tokens   []Token
	history  []Transaction
}

// Sync refreshes balances, tokens and history for the active networks.
// Calls are single-flight: while a pass runs, further calls mark the
// view dirty and return immediately, and the running call executes one
// more pass before finishing. A mode switch or wallet deletion during a
// pass discards that pass's results.
func (w *Wallet) Sync(ctx context.Context) error {
	w.mu.Lock()
	if w.key == nil {
		w.mu.Unlock()
		return ErrNoWallet
	}
	if w.syncing {
		w.dirty = true
		w.mu.Unlock()
		return nil
	}
	w.syncing = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.syncing = false
		w.cancelPass = nil
		w.mu.Unlock()
	}()

	for {
		w.mu.Lock()
		if w.key == nil {
			w.mu.Unlock()
			return ErrNoWallet
		}
		w.dirty = false
		gen := w.gen
		mode := w.mode
		addr := w.key.Address()
		passCtx, cancel := context.WithCancel(ctx)
		w.cancelPass = cancel
		w.mu.Unlock()

		snap := w.fetchAll(passCtx, mode, addr)
		cancelled := passCtx.Err() != nil
		cancel()

		w.mu.Lock()
		if w.gen == gen && !cancelled {
			w.balances = snap.balances
			w.tokens = snap.tokens
			w.history = snap.history
			w.lastSync = time.Now()
		}
		again := w.dirty && ctx.Err() == nil
		w.mu.Unlock()

		if !again {
			return ctx.Err()
		}
	}
}

// fetchAll gathers the full chain view for one pass. Individual fetch
// failures degrade to a zero balance or an empty list so one flaky
// network never fails the whole pass.
func (w *Wallet) fetchAll(ctx context.Context, mode network.Mode, addr common.Address) snapshot {
	nets := w.activeNetworks(mode)
	owner := addr.Hex()

	var (
		mu       sync.Mutex
		balances = make([]Balance, len(nets))
		tokens   = make([][]Token, len(nets))
		history  = make([][]Transaction, len(nets))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for i, net := range nets {
		i, net := i, net

		g.Go(func() error {
			raw, err := w.rpc.NativeBalance(gctx, net, addr)
			if err != nil {
				wlog.Sync.Warn().Str("network", string(net.ID)).Err(err).Msg("balance fetch failed")
				raw = nil
			}
			b := Balance{Network: net.ID, Symbol: net.NativeSymbol, Amount: "0", Raw: raw}
			if raw != nil {
				b.Amount = units.Format(raw, units.NativeDecimals, 8)
			}
			mu.Lock()
			balances[i] = b
			mu.Unlock()
			return nil
		})

		g.Go(func() error {
			var (
				txs       []chainio.TxRecord
				transfers []chainio.TokenTransfer
				inner     errgroup.Group
			)
			inner.Go(func() error {
				list, err := w.explorer.TransactionList(gctx, net, owner)
				if err != nil {
					wlog.Sync.Warn().Str("network", string(net.ID)).Err(err).Msg("transaction list fetch failed")
					return nil
				}
				txs = list
				return nil
			})
			inner.Go(func() error {
				list, err := w.explorer.TokenTransferList(gctx, net, owner)
				if err != nil {
					wlog.Sync.Warn().Str("network", string(net.ID)).Err(err).Msg("token transfer fetch failed")
					return nil
				}
				transfers = list
				return nil
			})
			inner.Wait()

			mu.Lock()
			tokens[i] = ReconstructTokens(net.ID, owner, transfers)
			history[i] = NormalizeHistory(net, owner, txs, transfers)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	snap := snapshot{balances: balances}
	for i := range nets {
		snap.tokens = append(snap.tokens, tokens[i]...)
		snap.history = append(snap.history, history[i]...)
	}
	// The per-network lists are each newest first; the merged view must
	// be too, not grouped by network.
	sort.SliceStable(snap.history, func(i, j int) bool {
		return snap.history[i].Timestamp > snap.history[j].Timestamp
	})
	return snap
}
