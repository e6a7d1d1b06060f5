// Package balance holds fungible token balances per identity.
//
// A Ledger is not safe for concurrent use; the engine serializes all
// access to it.
package balance

import (
	"sort"

	"github.com/blockberries/crowdfund"
	"github.com/blockberries/crowdfund/types"
)

// Ledger maps identities to token balances. Zero balances are not
// stored.
type Ledger struct {
	balances map[types.Identity]types.Amount
	supply   types.Amount
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[types.Identity]types.Amount)}
}

// Restore rebuilds a ledger from snapshot records.
func Restore(records []types.BalanceRecord) (*Ledger, error) {
	l := New()
	for _, r := range records {
		if r.Owner.IsNull() {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "balance for null identity")
		}
		if _, dup := l.balances[r.Owner]; dup {
			return nil, crowdfund.NewError(types.CodeInvalidInput, "duplicate balance for %s", r.Owner)
		}
		if _, err := l.Mint(r.Owner, r.Amount); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// BalanceOf returns the balance of id, 0 if unknown. Never fails.
func (l *Ledger) BalanceOf(id types.Identity) types.Amount {
	return l.balances[id]
}

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() types.Amount {
	return l.supply
}

// CheckMint reports the error Mint would return, without applying it.
func (l *Ledger) CheckMint(id types.Identity, amount types.Amount) error {
	if amount == 0 {
		return crowdfund.NewError(types.CodeInvalidAmount, "mint amount must be positive")
	}
	// Every balance is bounded by the supply, so checking the supply
	// also covers the balance.
	if l.supply > types.MaxAmount-amount {
		return crowdfund.NewError(types.CodeOverflow, "minting %d to %s exceeds the maximum supply", amount, id)
	}
	return nil
}

// Mint creates amount new tokens for id and returns the new balance.
// On error the balance is unchanged.
func (l *Ledger) Mint(id types.Identity, amount types.Amount) (types.Amount, error) {
	if err := l.CheckMint(id, amount); err != nil {
		return l.balances[id], err
	}
	l.supply += amount
	l.balances[id] += amount
	return l.balances[id], nil
}

// CheckDebit reports the error Debit would return, without applying it.
func (l *Ledger) CheckDebit(id types.Identity, amount types.Amount) error {
	if amount == 0 {
		return crowdfund.NewError(types.CodeInvalidAmount, "debit amount must be positive")
	}
	if bal := l.balances[id]; bal < amount {
		return crowdfund.NewError(types.CodeInsufficientBalance, "%s has %d, needs %d", id, bal, amount)
	}
	return nil
}

// Debit removes amount from id's balance and returns the new balance.
func (l *Ledger) Debit(id types.Identity, amount types.Amount) (types.Amount, error) {
	if err := l.CheckDebit(id, amount); err != nil {
		return l.balances[id], err
	}
	l.balances[id] -= amount
	l.supply -= amount
	bal := l.balances[id]
	if bal == 0 {
		delete(l.balances, id)
	}
	return bal, nil
}

// Credit adds amount previously removed by Debit to id's balance.
// Unlike Mint it is only meaningful as the second half of a transfer.
func (l *Ledger) Credit(id types.Identity, amount types.Amount) (types.Amount, error) {
	if amount == 0 {
		return l.balances[id], crowdfund.NewError(types.CodeInvalidAmount, "credit amount must be positive")
	}
	if l.supply > types.MaxAmount-amount {
		return l.balances[id], crowdfund.NewError(types.CodeOverflow, "crediting %d to %s overflows", amount, id)
	}
	l.supply += amount
	l.balances[id] += amount
	return l.balances[id], nil
}

// Transfer moves amount from one identity to another. It applies
// completely or not at all.
func (l *Ledger) Transfer(from, to types.Identity, amount types.Amount) (fromBal, toBal types.Amount, err error) {
	if err := l.CheckDebit(from, amount); err != nil {
		return l.balances[from], l.balances[to], err
	}
	// Debit then credit keeps supply constant, so the credit cannot
	// overflow.
	fromBal, _ = l.Debit(from, amount)
	toBal, _ = l.Credit(to, amount)
	if from == to {
		fromBal = toBal
	}
	return fromBal, toBal, nil
}

// Records returns all non-zero balances ordered by owner.
func (l *Ledger) Records() []types.BalanceRecord {
	out := make([]types.BalanceRecord, 0, len(l.balances))
	for id, amt := range l.balances {
		out = append(out, types.BalanceRecord{Owner: id, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Owner.Less(out[j].Owner)
	})
	return out
}
