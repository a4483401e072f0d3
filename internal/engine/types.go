// Package engine owns the wallet state: key lifecycle, the network
// mode, and the synced chain view (balances, tokens, history).
package engine

import (
	"math/big"

	"github.com/wllt-labs/wllt-core/internal/network"
)

// Balance is the native-coin balance of one network.
type Balance struct {
	Network network.ID
	Symbol  string
	Amount  string // display string, up to 8 fractional digits
	Raw     *big.Int
}

// Token is a held token balance reconstructed from transfer history.
type Token struct {
	Network  network.ID
	Contract string
	Name     string
	Symbol   string
	Decimals int
	Amount   string // display string, up to 6 fractional digits
	Raw      *big.Int
}

// Transaction is one normalized history entry, native or token.
type Transaction struct {
	Network   network.ID
	Hash      string
	From      string
	To        string
	Amount    string
	Symbol    string
	Incoming  bool
	Timestamp int64
}
