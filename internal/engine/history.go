package engine

import (
	"sort"
	"strings"

	"github.com/wllt-labs/wllt-core/internal/chainio"
	"github.com/wllt-labs/wllt-core/internal/network"
	"github.com/wllt-labs/wllt-core/internal/units"
)

// NormalizeHistory merges a network's raw transaction list and token
// transfer events into one display-ready history. Failed transactions
// are dropped. A hash present in both lists keeps the token transfer
// entry, since its value and symbol describe what actually moved. The
// result is sorted newest first.
func NormalizeHistory(net network.Network, owner string, txs []chainio.TxRecord, transfers []chainio.TokenTransfer) []Transaction {
	byHash := make(map[string]Transaction)
	var order []string

	for _, tx := range txs {
		if tx.IsError == "1" {
			continue
		}
		if _, seen := byHash[tx.Hash]; !seen {
			order = append(order, tx.Hash)
		}
		byHash[tx.Hash] = Transaction{
			Network:   net.ID,
			Hash:      tx.Hash,
			From:      tx.From,
			To:        tx.To,
			Amount:    units.FormatString(tx.Value, units.NativeDecimals, 6),
			Symbol:    net.NativeSymbol,
			Incoming:  !strings.EqualFold(tx.From, owner),
			Timestamp: parseTimestamp(tx.TimeStamp),
		}
	}

	for _, tr := range transfers {
		if _, seen := byHash[tr.Hash]; !seen {
			order = append(order, tr.Hash)
		}
		byHash[tr.Hash] = Transaction{
			Network:   net.ID,
			Hash:      tr.Hash,
			From:      tr.From,
			To:        tr.To,
			Amount:    units.FormatString(tr.Value, parseDecimals(tr.TokenDecimal), 6),
			Symbol:    tr.TokenSymbol,
			Incoming:  !strings.EqualFold(tr.From, owner),
			Timestamp: parseTimestamp(tr.TimeStamp),
		}
	}

	out := make([]Transaction, 0, len(order))
	for _, hash := range order {
		out = append(out, byHash[hash])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}
