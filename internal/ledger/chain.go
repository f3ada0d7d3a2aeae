// Package ledger implements the per-chain balance ledger for blockchain
// backed (ECO) wallets. A wallet holds one sub-balance per blockchain
// network; a logical transfer amount may be satisfied by consuming balance
// from several chains.
package ledger

import (
	"sort"

	"github.com/tradeyard/wallet-engine/internal/domain"
)

// ChainBalance is one blockchain network entry inside a wallet's chain map.
type ChainBalance struct {
	Address string `json:"address"`
	Network string `json:"network"`
	Balance int64  `json:"balance"` // micros
}

// ChainBalances maps chain name to its balance record. Serialized as JSONB
// at the storage boundary only.
type ChainBalances map[string]ChainBalance

// Deduction describes how much of a deduction one chain contributed.
type Deduction struct {
	Chain  string
	Amount int64 // micros
}

// Sum returns the chain balance total in micros.
func (c ChainBalances) Sum() int64 {
	var total int64
	for _, cb := range c {
		total += cb.Balance
	}
	return total
}

// deductionOrder returns chain names ordered by descending available
// balance, with the chain name ascending as the tie-break. The order is
// deterministic so that retries and audits reproduce the same distribution.
func deductionOrder(chains ChainBalances) []string {
	names := make([]string, 0, len(chains))
	for name := range chains {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		bi, bj := chains[names[i]].Balance, chains[names[j]].Balance
		if bi != bj {
			return bi > bj
		}
		return names[i] < names[j]
	})
	return names
}

// Deduct consumes amount from the chain map, greedily taking
// min(chainBalance, remaining) per chain in deduction order. It mutates
// chains in place and returns the ordered list of per-chain contributions,
// which always sums exactly to amount.
//
// If the total available across all chains is less than amount, chains is
// left untouched and an insufficient-funds error is returned; the caller's
// transaction scope must roll back.
func Deduct(chains ChainBalances, amount int64) ([]Deduction, error) {
	if amount <= 0 {
		return nil, domain.E(domain.KindValidation, "deduction amount must be positive")
	}
	if chains.Sum() < amount {
		return nil, domain.ErrInsufficientFunds
	}

	remaining := amount
	var details []Deduction
	for _, name := range deductionOrder(chains) {
		if remaining == 0 {
			break
		}
		cb := chains[name]
		if cb.Balance <= 0 {
			continue
		}
		take := cb.Balance
		if take > remaining {
			take = remaining
		}
		cb.Balance -= take
		chains[name] = cb
		remaining -= take
		details = append(details, Deduction{Chain: name, Amount: take})
	}
	return details, nil
}

// Credit applies a deduction-detail list to the destination chain map,
// creating entries with empty address/network metadata for chains the
// destination had no prior balance on.
func Credit(chains ChainBalances, details []Deduction) {
	for _, d := range details {
		cb := chains[d.Chain]
		cb.Balance += d.Amount
		chains[d.Chain] = cb
	}
}
