// Package accounts maintains the sealed account balances derived from the
// blocks of the chain.
package accounts

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Transfer is the subset of a transaction needed to move value between
// two accounts.
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// Accounts manages balances for every identity that has transacted on
// the blockchain.
type Accounts struct {
	systemID string
	info     map[string]decimal.Decimal
	mu       sync.RWMutex
}

// New constructs an empty set of accounts. Transfers from systemID mint new
// value and are never debited.
func New(systemID string) *Accounts {
	return &Accounts{
		systemID: systemID,
		info:     make(map[string]decimal.Decimal),
	}
}

// Replace updates the accounts based on the specified accounts.
func (act *Accounts) Replace(accounts *Accounts) {
	accounts.mu.RLock()
	info := accounts.info
	accounts.mu.RUnlock()

	act.mu.Lock()
	defer act.mu.Unlock()

	act.info = info
}

// Copy makes a copy of the current balances for all accounts.
func (act *Accounts) Copy() map[string]decimal.Decimal {
	act.mu.RLock()
	defer act.mu.RUnlock()

	balances := make(map[string]decimal.Decimal, len(act.info))
	for id, balance := range act.info {
		balances[id] = balance
	}
	return balances
}

// Balance returns the sealed balance for the specified identity.
func (act *Accounts) Balance(id string) decimal.Decimal {
	act.mu.RLock()
	defer act.mu.RUnlock()

	return act.info[id]
}

// ApplyTransfer performs the business logic for applying a transfer to the
// balance sheet. Sealed history is authoritative, so no funds check happens
// here; admission to the mempool is where funds are checked.
func (act *Accounts) ApplyTransfer(tr Transfer) {
	act.mu.Lock()
	defer act.mu.Unlock()

	if tr.From != act.systemID {
		act.info[tr.From] = act.info[tr.From].Sub(tr.Amount)
	}
	act.info[tr.To] = act.info[tr.To].Add(tr.Amount)
}
