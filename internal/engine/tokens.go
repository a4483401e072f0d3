package engine

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/wllt-labs/wllt-core/internal/chainio"
	"github.com/wllt-labs/wllt-core/internal/network"
	"github.com/wllt-labs/wllt-core/internal/units"
)

// tokenState accumulates one contract's balance during replay.
type tokenState struct {
	contract string
	name     string
	symbol   string
	decimals int
	balance  *big.Int
	order    int
}

// ReconstructTokens rebuilds the owner's token holdings by replaying
// transfer events in chronological order. Transfers sent by the owner
// debit the balance, but only for contracts already seen, and never
// below zero; the rest that name the owner as recipient credit it. The
// sender check comes first, so a self-transfer counts as outgoing and
// never inflates the balance. Explorers can miss events, so a transfer
// out of nothing and a negative running balance both floor at zero
// rather than failing. Contracts whose final balance is zero are
// omitted.
func ReconstructTokens(netID network.ID, owner string, transfers []chainio.TokenTransfer) []Token {
	ordered := make([]chainio.TokenTransfer, len(transfers))
	copy(ordered, transfers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return parseTimestamp(ordered[i].TimeStamp) < parseTimestamp(ordered[j].TimeStamp)
	})

	states := make(map[string]*tokenState)
	for _, tr := range ordered {
		key := strings.ToLower(tr.ContractAddress)
		value, ok := new(big.Int).SetString(tr.Value, 10)
		if !ok {
			continue
		}

		switch {
		case strings.EqualFold(tr.From, owner):
			st, ok := states[key]
			if !ok {
				continue
			}
			st.balance.Sub(st.balance, value)
			if st.balance.Sign() < 0 {
				st.balance.SetInt64(0)
			}
		case strings.EqualFold(tr.To, owner):
			st := states[key]
			if st == nil {
				st = &tokenState{
					contract: tr.ContractAddress,
					balance:  new(big.Int),
					order:    len(states),
				}
				states[key] = st
			}
			st.name = tr.TokenName
			st.symbol = tr.TokenSymbol
			st.decimals = parseDecimals(tr.TokenDecimal)
			st.balance.Add(st.balance, value)
		}
	}

	var out []Token
	for _, st := range states {
		if st.balance.Sign() <= 0 {
			continue
		}
		out = append(out, Token{
			Network:  netID,
			Contract: st.contract,
			Name:     st.name,
			Symbol:   st.symbol,
			Decimals: st.decimals,
			Amount:   units.Format(st.balance, st.decimals, 6),
			Raw:      st.balance,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return states[strings.ToLower(out[i].Contract)].order < states[strings.ToLower(out[j].Contract)].order
	})
	return out
}

func parseTimestamp(s string) int64 {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

func parseDecimals(s string) int {
	d, err := strconv.Atoi(s)
	if err != nil || d < 0 {
		return 18
	}
	return d
}
